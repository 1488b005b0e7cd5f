package adapters

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"sgf_review/internal/bootstrap"
)

type AdapterBadger struct {
	DB  *badger.DB
	cfg *bootstrap.Config
	log *zap.SugaredLogger
}

func NewAdapterBadger(cfg *bootstrap.Config, log *zap.SugaredLogger) *AdapterBadger {
	return &AdapterBadger{cfg: cfg, log: log}
}

// Init opens the database at BadgerPath; an empty path keeps everything in memory.
func (a *AdapterBadger) Init(ctx context.Context) error {
	var opts badger.Options
	if a.cfg.BadgerPath == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(a.cfg.BadgerPath)
	}
	opts = opts.WithLogger(&badgerLogger{log: a.log})

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("open badger at %q: %w", a.cfg.BadgerPath, err)
	}
	a.DB = db

	a.log.Infow("badger opened", "path", a.cfg.BadgerPath, "in_memory", a.cfg.BadgerPath == "")
	return nil
}

func (a *AdapterBadger) Close(ctx context.Context) error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

// badgerLogger routes badger's own chatter into zap at debug level.
type badgerLogger struct {
	log *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Errorf("badger: "+format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warnf("badger: "+format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debugf("badger: "+format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debugf("badger: "+format, args...)
}
