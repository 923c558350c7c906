package balance

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/niobium-nz/balance/hook"
	"github.com/niobium-nz/balance/store"
	"github.com/niobium-nz/balance/types"
)

// Engine is the balance ledger and daily accounting rollup engine.
type Engine struct {
	store  store.Store
	hooks  *hook.Registry
	logger *slog.Logger
	clock  types.Clock

	// Background rollup worker
	rollupQueue chan string
	stopChan    chan struct{}
	wg          sync.WaitGroup

	// Per-principal rollup serialization
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:       s,
		hooks:       hook.NewRegistry(),
		logger:      slog.Default(),
		clock:       types.SystemClock(),
		rollupQueue: make(chan string, 1024),
		stopChan:    make(chan struct{}),
		locks:       make(map[string]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.hooks.WithLogger(logger)
	}
}

// WithClock sets the time source. Production uses the system clock; tests
// inject a fixed or stepped clock.
func WithClock(clock types.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithHook registers a hook.
func WithHook(h hook.Hook) Option {
	return func(e *Engine) {
		_ = e.hooks.Register(h) //nolint:errcheck // best-effort hook registration during init
	}
}

// WithRollupQueueSize sets the capacity of the async rollup queue.
func WithRollupQueueSize(n int) Option {
	return func(e *Engine) {
		e.rollupQueue = make(chan string, n)
	}
}

// Hooks returns the hook registry for late registration.
func (e *Engine) Hooks() *hook.Registry { return e.hooks }

// Start migrates the store and begins background workers.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.hooks.EmitInit(ctx)

	e.wg.Add(1)
	go e.rollupWorker(ctx)

	e.logger.Info("balance engine started",
		"rollup_queue_size", cap(e.rollupQueue),
	)

	return nil
}

// Stop shuts down the engine.
func (e *Engine) Stop() error {
	close(e.stopChan)
	e.wg.Wait()

	ctx := context.Background()
	e.hooks.EmitShutdown(ctx)

	return e.store.Close()
}

// RequestRollup enqueues a principal for background rollup (non-blocking).
func (e *Engine) RequestRollup(principal string) error {
	principal = strings.TrimSpace(principal)
	if principal == "" {
		return &ValidationError{Field: "principal", Message: "must not be empty"}
	}

	select {
	case e.rollupQueue <- principal:
		return nil
	default:
		return ErrRollupQueueFull
	}
}

// rollupWorker drains the rollup queue until the engine stops.
func (e *Engine) rollupWorker(ctx context.Context) {
	defer e.wg.Done()

	for {
		select {
		case <-e.stopChan:
			return

		case principal := <-e.rollupQueue:
			if err := e.Rollup(ctx, principal); err != nil {
				e.logger.Error("background rollup failed",
					"principal", principal,
					"error", err,
				)
			}
		}
	}
}

// principalLock returns the mutex serializing rollups for a principal.
func (e *Engine) principalLock(principal string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.locks[principal]
	if !ok {
		l = &sync.Mutex{}
		e.locks[principal] = l
	}
	return l
}

// validPrincipal trims and validates a principal identifier.
func validPrincipal(principal string) (string, error) {
	principal = strings.TrimSpace(principal)
	if principal == "" {
		return "", &ValidationError{Field: "principal", Message: "must not be empty"}
	}
	return principal, nil
}

// now returns the current instant from the injected clock, in UTC.
func (e *Engine) now() time.Time {
	return e.clock.Now().UTC()
}
