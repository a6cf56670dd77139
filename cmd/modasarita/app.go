package main

import (
	"context"
	"fmt"

	"github.com/Danohx/modasarita-auth/flow"
	"github.com/Danohx/modasarita-auth/gateway"
	"github.com/Danohx/modasarita-auth/guard"
	"github.com/Danohx/modasarita-auth/internal/config"
	"github.com/Danohx/modasarita-auth/internal/metrics"
	"github.com/Danohx/modasarita-auth/security"
	"github.com/Danohx/modasarita-auth/session"
	"github.com/Danohx/modasarita-auth/session/filestore"
	"github.com/Danohx/modasarita-auth/session/redisstore"
	"github.com/Danohx/modasarita-auth/session/sqlitestore"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// app holds the wired components a command works with.
type app struct {
	client   *gateway.Client
	sessions *session.Manager
	guard    *guard.Guard
	metrics  *metrics.Metrics
	term     *terminal
	nav      flow.Navigator
	closers  []func() error
}

func newApp(ctx context.Context, c config.Config, m *metrics.Metrics, term *terminal) (*app, error) {
	a := &app{metrics: m, term: term}

	store, err := a.openStore(c)
	if err != nil {
		return nil, err
	}

	rps, burst := c.GetRateLimit()
	a.client = gateway.New(c.GetAPIURL(),
		gateway.WithTimeout(c.GetRequestTimeout()),
		gateway.WithRateLimit(rps, burst),
		gateway.WithMetrics(m),
	)

	a.sessions = session.NewManager(store, a.client, session.WithMetrics(m))
	// An unreadable store leaves the user signed out; Init has logged why
	_ = a.sessions.Init(ctx)

	a.guard = guard.New(a.sessions)
	a.nav = flow.NavigatorFunc(func(path string, _ bool) {
		term.navigated(path)
	})
	return a, nil
}

func (a *app) openStore(c config.StoreConfig) (session.TokenStore, error) {
	switch c.GetStoreDriver() {
	case config.StoreMemory:
		return session.NewInMemoryTokenStore(), nil

	case config.StoreFile:
		var opts []filestore.Option
		if p := c.GetStorePassphrase(); p != "" {
			opts = append(opts, filestore.WithPassphrase(p))
		}
		return filestore.New(c.GetStorePath(), opts...), nil

	case config.StoreSQLite:
		st, err := sqlitestore.Open(c.GetStorePath())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, st.Close)
		return st, nil

	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: c.GetRedisAddr()})
		a.closers = append(a.closers, rdb.Close)
		return redisstore.New(rdb, c.GetRedisPrefix()), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", c.GetStoreDriver())
}

func (a *app) close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			log.Err(err).Msg("closing store")
		}
	}
	a.closers = nil
}

func (a *app) controller() *flow.Controller {
	return flow.NewController(a.client, a.sessions,
		flow.WithMetrics(a.metrics),
		flow.WithNavigator(a.nav),
		flow.WithObserver(func(s flow.State) {
			log.Debug().Stringer("state", s.Kind()).Msg("login flow")
		}),
	)
}

func (a *app) redeemer() *flow.Redeemer {
	return flow.NewRedeemer(a.client, a.sessions, a.nav, flow.WithRedeemerMetrics(a.metrics))
}

func (a *app) enrollment() *security.Enrollment {
	return security.NewEnrollment(a.client, a.sessions)
}
