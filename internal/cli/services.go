package cli

import (
	"context"
	"fmt"

	"github.com/randalmurphal/teamlead/internal/db"
	"github.com/randalmurphal/teamlead/internal/db/driver"
	"github.com/randalmurphal/teamlead/internal/deliverable"
	teamerrors "github.com/randalmurphal/teamlead/internal/errors"
	"github.com/randalmurphal/teamlead/internal/events"
	"github.com/randalmurphal/teamlead/internal/lifecycle"
	"github.com/randalmurphal/teamlead/internal/rules"
)

// services is the wired object graph for one command.
type services struct {
	store       *db.DB
	rules       *rules.Rules
	deliverable *deliverable.Aggregator
	executor    *lifecycle.Executor
}

// wireOptions are the collaborators only serve provides.
type wireOptions struct {
	announcer *events.Announcer
	recorder  lifecycle.Recorder
}

// openStore opens and migrates the configured database.
func (a *app) openStore(ctx context.Context) (*db.DB, error) {
	dialect := a.cfg.Dialect()
	dsn := a.cfg.Database.Path
	if dialect == driver.DialectPostgres {
		dsn = a.cfg.Database.DSN
	}

	store, err := db.OpenWithDialect(dsn, dialect)
	if err != nil {
		return nil, teamerrors.ErrStoreUnavailable(string(dialect)+" database", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate %s: %w", dialect, err)
	}
	return store, nil
}

// loadRules loads the configured rule tables, or the built-in ones.
func (a *app) loadRules() (*rules.Rules, error) {
	return rules.Load(a.cfg.RulesFile)
}

// openServices opens the store and builds the aggregator and executor on it.
// The caller closes services.store.
func (a *app) openServices(ctx context.Context, wo wireOptions) (*services, error) {
	r, err := a.loadRules()
	if err != nil {
		return nil, err
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	aggOpts := []deliverable.Option{
		deliverable.WithConfig(a.cfg.Deliverable),
		deliverable.WithRules(r),
		deliverable.WithLogger(a.logger),
	}
	execOpts := []lifecycle.Option{
		lifecycle.WithConfig(a.cfg.LifecycleSettings()),
		lifecycle.WithRules(r),
		lifecycle.WithThresholds(a.cfg.Phase.Thresholds),
		lifecycle.WithLogger(a.logger),
	}
	if wo.announcer != nil {
		aggOpts = append(aggOpts, deliverable.WithObserver(wo.announcer))
		execOpts = append(execOpts, lifecycle.WithObserver(wo.announcer))
	}
	if wo.recorder != nil {
		execOpts = append(execOpts, lifecycle.WithRecorder(wo.recorder))
	}

	agg := deliverable.New(store, aggOpts...)
	return &services{
		store:       store,
		rules:       r,
		deliverable: agg,
		executor:    lifecycle.New(store, agg, execOpts...),
	}, nil
}

func (s *services) Close() error {
	return s.store.Close()
}
