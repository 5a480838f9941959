package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/voxhall/voxhall/server/auth"
	"github.com/voxhall/voxhall/server/dispatch"
	"github.com/voxhall/voxhall/server/identifiers"
	"github.com/voxhall/voxhall/server/logger"
	"github.com/voxhall/voxhall/server/message"
	"nhooyr.io/websocket"
)

type WSSParams struct {
	Log        logger.Logger
	Gate       *auth.Gate
	Core       *dispatch.Core
	Serializer *message.Serializer
	Limits     LimitsConfig
}

// WSS accepts websocket connections. A connection is authenticated before
// the upgrade, and only authenticated connections enter the dispatch table.
type WSS struct {
	log        logger.Logger
	gate       *auth.Gate
	core       *dispatch.Core
	serializer *message.Serializer
	limits     LimitsConfig
}

func NewWSS(params WSSParams) *WSS {
	if params.Serializer == nil {
		params.Serializer = message.NewSerializer()
	}

	return &WSS{
		log:        params.Log.WithNamespaceAppended("wss"),
		gate:       params.Gate,
		core:       params.Core,
		serializer: params.Serializer,
		limits:     params.Limits,
	}
}

func (wss *WSS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := wss.gate.Authenticate(r)
	if err != nil {
		prometheusHandshakeRejectedTotal.Inc()
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)

		return
	}

	start := time.Now()

	prometheusWSConnTotal.Inc()
	prometheusWSConnActive.Inc()

	defer func() {
		prometheusWSConnActive.Dec()

		if err != nil {
			prometheusWSConnErrTotal.Inc()
		}

		prometheusWSConnDuration.Observe(time.Since(start).Seconds())
	}()

	log := wss.log.WithCtx(logger.Ctx{
		"conn_id": identity.ConnID,
		"user_id": identity.UserID,
	})

	var c *websocket.Conn

	c, err = websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		log.Error("Accept websocket connection", errors.Trace(err), nil)

		return
	}

	defer c.Close(websocket.StatusInternalError, "")

	if wss.limits.ReadLimit > 0 {
		c.SetReadLimit(wss.limits.ReadLimit)
	}

	err = wss.serve(r.Context(), log, c, identity)
}

func (wss *WSS) serve(
	ctx context.Context,
	log logger.Logger,
	c *websocket.Conn,
	identity identifiers.Identity,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client := NewClient(ClientParams{
		Log:        wss.log,
		ConnID:     identity.ConnID,
		Conn:       c,
		Serializer: wss.serializer,
		QueueSize:  wss.limits.SendQueueSize,
	})

	if err := wss.core.Connect(identity, client); err != nil {
		return errors.Trace(err)
	}

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		client.WriteLoop(ctx)
	}()

	if wss.limits.PingInterval > 0 {
		pinger := NewPinger(ctx, wss.limits.PingInterval, c.Ping, func(err error) {
			log.Info("Connection is not responding", logger.Ctx{
				"err": err,
			})

			client.Close(websocket.StatusGoingAway, "ping timeout")
		})

		defer func() { <-pinger.Done() }()
	}

	log.Info("New websocket connection", nil)

	for msg := range client.Subscribe(ctx) {
		wss.core.Handle(ctx, identity.ConnID, msg)
	}

	// Disconnect first so that nothing new is queued for this client.
	wss.core.Disconnect(identity.ConnID)

	client.Close(websocket.StatusNormalClosure, "")
	wg.Wait()
	cancel()

	err := client.Err()

	if stderrors.Is(err, context.Canceled) {
		return nil
	}

	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return nil
	}

	if err != nil {
		log.Info("Subscription ended", logger.Ctx{
			"err": err,
		})
	}

	return errors.Trace(err)
}
