package commands

import (
	log "github.com/sirupsen/logrus"

	"tableflip.dev/pomo/pkg/app"
	"tableflip.dev/pomo/pkg/bus"
	"tableflip.dev/pomo/pkg/store"
	"tableflip.dev/pomo/pkg/tasks"
)

// env is everything a command needs, built from the loaded configuration.
type env struct {
	cfg     store.Config
	store   store.Store
	catalog *tasks.Catalog
	svc     *app.Service
	detach  func()
}

func loadEnv() (*env, error) {
	cfg, err := store.LoadConfig()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.LogLevel())
	logger := log.StandardLogger()

	st, err := store.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	catalog, err := tasks.NewCatalog(cfg.BasePath(), logger)
	if err != nil {
		return nil, err
	}
	svc := &app.Service{
		Store:    st,
		Tasks:    catalog,
		Projects: catalog,
		Bus:      bus.Default(),
		Log:      logger,
	}
	return &env{
		cfg:     cfg,
		store:   st,
		catalog: catalog,
		svc:     svc,
		detach:  svc.Attach(),
	}, nil
}

func (e *env) Close() {
	if e.detach != nil {
		e.detach()
	}
}

// watcher returns the store as a Watcher when it can observe changes.
func (e *env) watcher() store.Watcher {
	w, _ := e.store.(store.Watcher)
	return w
}

// friendlyError carries the message shown to people while keeping the cause for errors.Is.
type friendlyError struct {
	msg string
	err error
}

func (f *friendlyError) Error() string { return f.msg }
func (f *friendlyError) Unwrap() error { return f.err }

func userError(err error) error {
	if err == nil {
		return nil
	}
	return &friendlyError{msg: app.UserMessage(err), err: err}
}
