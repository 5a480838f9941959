package server

import (
	"github.com/juju/errors"
	"github.com/voxhall/voxhall/server/auth"
	"github.com/voxhall/voxhall/server/dispatch"
	"github.com/voxhall/voxhall/server/logger"
	"github.com/voxhall/voxhall/server/message"
	"github.com/voxhall/voxhall/server/registry"
	"github.com/voxhall/voxhall/server/store"
)

// App wires the dispatch core and its collaborators together from a
// Config.
type App struct {
	Gate  *auth.Gate
	Store store.Store
	Rooms *registry.Registry
	Core  *dispatch.Core
	Mux   *Mux
}

// NewApp fails when the configuration cannot produce a working gate, such
// as when the auth secret is empty.
func NewApp(log logger.Logger, c Config) (*App, error) {
	gate, err := auth.New(auth.Params{
		Log:        log,
		Secret:     c.Auth.Secret,
		CookieName: c.Auth.CookieName,
		MaxAge:     c.Auth.MaxAge,
	})
	if err != nil {
		return nil, errors.Annotate(err, "configure auth")
	}

	return NewAppWithStore(log, c, gate, store.New(store.Params{
		Log:  log,
		Type: c.Store.Type,
		Redis: store.RedisParams{
			Host:   c.Store.Redis.Host,
			Port:   c.Store.Redis.Port,
			Prefix: c.Store.Redis.Prefix,
		},
		MaxHistory: c.Store.MaxHistory,
	})), nil
}

// NewAppWithStore is like NewApp but uses the provided gate and store.
func NewAppWithStore(log logger.Logger, c Config, gate *auth.Gate, s store.Store) *App {
	rooms := registry.New()

	core := dispatch.New(dispatch.Params{
		Log:               log,
		Rooms:             rooms,
		Store:             s,
		MessagesPerSecond: c.Limits.MessagesPerSecond,
		Burst:             c.Limits.Burst,
		RequireMembership: c.Signaling.RequireMembership,
	})

	wss := NewWSS(WSSParams{
		Log:        log,
		Gate:       gate,
		Core:       core,
		Serializer: message.NewSerializer(),
		Limits:     c.Limits,
	})

	mux := NewMux(MuxParams{
		Log:        log,
		BaseURL:    c.BaseURL,
		Gate:       gate,
		Store:      s,
		WSS:        wss,
		Prometheus: c.Prometheus,
	})

	return &App{
		Gate:  gate,
		Store: s,
		Rooms: rooms,
		Core:  core,
		Mux:   mux,
	}
}

func (a *App) Close() error {
	return errors.Trace(a.Store.Close())
}
