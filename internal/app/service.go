// Package service wires the catalog, the spin engine and the delivery
// pipeline together and exposes what the HTTP API needs.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/randommarket/internal/adapters/mq/broadcast"
	"github.com/okian/randommarket/internal/adapters/mq/queue"
	"github.com/okian/randommarket/internal/adapters/mq/worker"
	"github.com/okian/randommarket/internal/adapters/repository"
	"github.com/okian/randommarket/internal/domain/catalog"
	"github.com/okian/randommarket/internal/domain/dedupe"
	"github.com/okian/randommarket/internal/domain/engine"
	"github.com/okian/randommarket/internal/domain/model"
	"github.com/okian/randommarket/internal/domain/schedule"
	"github.com/okian/randommarket/internal/domain/selector"
	"github.com/okian/randommarket/pkg/logger"
	"github.com/okian/randommarket/pkg/metrics"
)

// Service implements the API dependencies of the spin server.
type Service struct {
	mu sync.RWMutex

	// Core components
	source     catalog.Source
	catalog    *catalog.Catalog
	engine     *engine.Engine
	queue      *queue.InMemoryQueue
	dispatcher *worker.Dispatcher
	hub        *broadcast.Hub
	history    *repository.MemoryStore

	// Configuration
	params           schedule.Params
	workingListSize  int
	queueSize        int
	subscriberBuffer int
	historySize      int
	maxEvents        int
	refreshInterval  time.Duration
	clock            engine.Clock
	rng              selector.RNG

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	logger logger.Logger
}

// New constructs a Service reading events from source.
func New(source catalog.Source, opts ...Option) (*Service, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	s := &Service{
		source:           source,
		params:           schedule.DefaultParams(),
		workingListSize:  engine.DefaultWorkingListSize,
		queueSize:        1024,
		subscriberBuffer: 64,
		historySize:      100,
		refreshInterval:  time.Minute,
		clock:            engine.SystemClock(),
		rng:              selector.DefaultRNG(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.params.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Start builds the components, loads the catalog once and starts the
// background loops. A failing first load is logged; the refresh loop keeps
// trying.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting spin service...")

	cat, err := catalog.New(s.source,
		catalog.WithMaxEvents(s.maxEvents),
		catalog.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.maxEvents))),
		catalog.WithLogger(s.logger.Named("catalog")),
	)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	q := queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	eng, err := engine.New(
		engine.WithParams(s.params),
		engine.WithWorkingListSize(s.workingListSize),
		engine.WithClock(s.clock),
		engine.WithRNG(s.rng),
		engine.WithLogger(s.logger.Named("engine")),
		engine.WithListener(q),
	)
	if err != nil {
		_ = q.Close()
		return fmt.Errorf("engine: %w", err)
	}
	hub := broadcast.NewHub(
		broadcast.WithSubscriberBuffer(s.subscriberBuffer),
		broadcast.WithLogger(s.logger.Named("broadcast")),
	)
	history := repository.NewMemoryStore(repository.WithHistorySize(s.historySize))
	dispatcher := worker.NewDispatcher(q,
		[]worker.Handler{hub, worker.HistoryHandler(history)},
		worker.WithLogger(s.logger),
	)

	if err := cat.Refresh(ctx); err != nil {
		s.logger.Warn(ctx, "initial catalog load failed", logger.Error(err))
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		dispatcher.Run(runCtx)
	}()
	go func() {
		defer s.wg.Done()
		cat.Run(runCtx, s.refreshInterval)
	}()

	s.catalog = cat
	s.queue = q
	s.engine = eng
	s.hub = hub
	s.history = history
	s.dispatcher = dispatcher
	s.cancel = cancel
	s.started = true
	s.startedAt = time.Now()

	s.logger.Info(ctx, "spin service started",
		logger.Int("events", cat.Len()),
		logger.Int("workingListSize", s.workingListSize),
		logger.Int("queueSize", s.queueSize),
		logger.Duration("refreshInterval", s.refreshInterval),
	)
	return nil
}

// Stop closes the engine, queue, dispatcher and hub in that order.
// Notifications already queued are delivered before the hub closes.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(ctx, "stopping spin service...")

	s.engine.Close(ctx)
	if err := s.queue.Close(); err != nil {
		s.logger.Error(ctx, "error closing queue", logger.Error(err))
	}
	if err := s.dispatcher.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "dispatcher shutdown", logger.Error(err))
	}
	s.hub.Close()
	s.cancel()
	s.wg.Wait()

	s.started = false
	s.logger.Info(ctx, "spin service stopped")
}

// running returns the engine and catalog, or ErrNotStarted.
func (s *Service) running() (*engine.Engine, *catalog.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.engine, s.catalog, nil
}

// Events returns the current catalog.
func (s *Service) Events(_ context.Context) ([]model.Event, error) {
	_, cat, err := s.running()
	if err != nil {
		return nil, err
	}
	return cat.Events(), nil
}

// RefreshEvents reloads the catalog now.
func (s *Service) RefreshEvents(ctx context.Context) error {
	_, cat, err := s.running()
	if err != nil {
		return err
	}
	return cat.Refresh(ctx)
}

// StartSpin spins over the current catalog.
func (s *Service) StartSpin(ctx context.Context) (engine.Spin, error) {
	eng, cat, err := s.running()
	if err != nil {
		return engine.Spin{}, err
	}
	events := cat.Events()
	if len(events) == 0 {
		metrics.RecordSpinRejected("no_events")
		return engine.Spin{}, catalog.ErrNoEvents
	}
	spin, err := eng.StartSpin(ctx, events)
	if err != nil && !errors.Is(err, engine.ErrAlreadySpinning) {
		s.logger.Warn(ctx, "spin rejected", logger.Error(err))
	}
	return spin, err
}

// CancelSpin cancels the spin in flight and reports whether there was one.
func (s *Service) CancelSpin(ctx context.Context) bool {
	eng, _, err := s.running()
	if err != nil {
		return false
	}
	return eng.Cancel(ctx)
}

// Current returns the engine snapshot.
func (s *Service) Current(_ context.Context) (engine.Snapshot, error) {
	eng, _, err := s.running()
	if err != nil {
		return engine.Snapshot{}, err
	}
	return eng.Snapshot(), nil
}

// Subscribe registers a stream subscriber. Callers must Unsubscribe.
func (s *Service) Subscribe(kinds ...model.NotificationKind) (*broadcast.Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.hub.Subscribe(kinds...), nil
}

// Unsubscribe removes a stream subscriber.
func (s *Service) Unsubscribe(id string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.hub != nil {
		s.hub.Unsubscribe(id)
	}
}

func (s *Service) store() (*repository.MemoryStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.history == nil {
		return nil, ErrNotStarted
	}
	return s.history, nil
}

// TopWinners returns the n events that won most often.
func (s *Service) TopWinners(ctx context.Context, n int) ([]repository.WinnerEntry, error) {
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	return st.TopWinners(ctx, n)
}

// Rank returns the winners board row of one event.
func (s *Service) Rank(ctx context.Context, eventID string) (repository.WinnerEntry, error) {
	st, err := s.store()
	if err != nil {
		return repository.WinnerEntry{}, err
	}
	return st.Rank(ctx, eventID)
}

// Recent returns the n most recent finished spins, newest first.
func (s *Service) Recent(ctx context.Context, n int) ([]repository.SpinRecord, error) {
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	return st.Recent(ctx, n)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":         s.started,
		"workingListSize": s.workingListSize,
		"queueSize":       s.queueSize,
		"historySize":     s.historySize,
	}
	if !s.started {
		return stats
	}

	lastRefresh, lastErr := s.catalog.Status()
	stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
	stats["events"] = s.catalog.Len()
	stats["lastRefresh"] = lastRefresh
	if lastErr != nil {
		stats["lastRefreshError"] = lastErr.Error()
	}
	stats["state"] = s.engine.State().String()
	stats["queueLength"] = s.queue.Len()
	stats["subscribers"] = s.hub.Count()
	stats["totalSpins"] = s.history.Count(ctx)
	stats["distinctWinners"] = s.history.DistinctWinners()
	return stats
}
