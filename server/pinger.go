package server

import (
	"context"
	"time"

	"github.com/juju/errors"
)

// Pinger pings a connection on a regular interval. Each ping must be
// answered before the next tick, otherwise the connection is considered dead
// and onDead is called once.
type Pinger struct {
	ticker *time.Ticker
	ping   func(ctx context.Context) error
	onDead func(err error)
	doneCh chan struct{}
}

// NewPinger creates a new instance of Pinger and starts a ticker whose
// duration is set to dur. The main event loop will be closed when ctx is
// done or when a ping fails.
func NewPinger(
	ctx context.Context,
	dur time.Duration,
	ping func(ctx context.Context) error,
	onDead func(err error),
) *Pinger {
	p := &Pinger{
		ticker: time.NewTicker(dur),
		ping:   ping,
		onDead: onDead,
		doneCh: make(chan struct{}),
	}

	go p.run(ctx, dur)

	return p
}

// run is the main event loop.
func (p *Pinger) run(ctx context.Context, dur time.Duration) {
	defer close(p.doneCh)
	defer p.ticker.Stop()

	for {
		select {
		case <-p.ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, dur)
			err := p.ping(pingCtx)

			cancel()

			if err != nil {
				if ctx.Err() == nil {
					p.onDead(errors.Annotate(err, "ping"))
				}

				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Done is closed after the event loop exits.
func (p *Pinger) Done() <-chan struct{} {
	return p.doneCh
}
