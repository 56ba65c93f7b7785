// Package app builds the client object graph: store, refresher, transport,
// API client, session manager and the screen services.
package app

import (
	"github.com/jrsteele09/resume-client/api"
	"github.com/jrsteele09/resume-client/documents"
	"github.com/jrsteele09/resume-client/internal/config"
	"github.com/jrsteele09/resume-client/notify"
	"github.com/jrsteele09/resume-client/profile"
	"github.com/jrsteele09/resume-client/session"
	"github.com/jrsteele09/resume-client/store"
	"github.com/jrsteele09/resume-client/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type App struct {
	Store     store.Store
	Bus       *notify.Bus
	Client    *api.Client
	Session   *session.Manager
	Profile   *profile.Service
	Documents *documents.Service
}

type options struct {
	store    store.Store
	navigate session.Navigator
	bus      *notify.Bus
}

type Option func(*options)

// WithStore replaces the file store named by the configuration.
func WithStore(st store.Store) Option {
	return func(o *options) {
		o.store = st
	}
}

// WithNavigator sets where forced logouts send the front end.
func WithNavigator(nav session.Navigator) Option {
	return func(o *options) {
		o.navigate = nav
	}
}

func WithBus(bus *notify.Bus) Option {
	return func(o *options) {
		o.bus = bus
	}
}

// New wires the client for cfg. The session is restored from the store but
// not checked against the server; call Session.CheckSession for that.
func New(cfg config.APIConfig, storeCfg config.StoreConfig, opts ...Option) (*App, error) {
	o := options{
		navigate: func(route string) {
			log.Debug().Str("route", route).Msg("navigate")
		},
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.store == nil {
		var fileOpts []store.FileStoreOption
		if pass := storeCfg.GetStorePassphrase(); pass != "" {
			fileOpts = append(fileOpts, store.WithPassphrase(pass))
		}
		fs, err := store.OpenFileStore(storeCfg.GetStorePath(), fileOpts...)
		if err != nil {
			return nil, errors.Wrap(err, "[app.New] open store")
		}
		o.store = fs
	}
	if o.bus == nil {
		o.bus = notify.NewBus()
	}

	baseURL := cfg.GetBaseURL()
	timeout := cfg.GetRequestTimeout()

	transport := api.NewAuthTransport(o.store, token.NewRefresher(baseURL, timeout))
	client := api.New(baseURL,
		api.WithTimeout(timeout),
		api.WithTransport(transport),
		api.WithErrorObserver(o.bus.ErrorObserver()),
	)
	mgr := session.New(client, o.store,
		session.WithNotifier(o.bus),
		session.WithNavigator(o.navigate),
	)
	transport.SetObserver(mgr)

	log.Debug().Str("base_url", baseURL).Dur("timeout", timeout).Msg("client ready")

	return &App{
		Store:     o.store,
		Bus:       o.bus,
		Client:    client,
		Session:   mgr,
		Profile:   profile.NewService(client, mgr),
		Documents: documents.NewService(client, mgr),
	}, nil
}
