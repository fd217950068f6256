package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"wall/internal/models"
	"wall/internal/observability"
)

// WallConfig wires a Wall to its collaborators.
type WallConfig struct {
	Backend   Backend
	Blobs     BlobStore
	Author    *string
	Persister Persister

	OptimisticRetention time.Duration
	DiscardStale        bool
}

var (
	errAlreadyMounted = errors.New("wall already mounted")
	errUnmounted      = errors.New("wall has been unmounted")
)

// Wall composes the store, loader, listener, and pipeline behind a
// mount/unmount lifecycle.
type Wall struct {
	store    *Store
	loader   *Loader
	listener *Listener
	pipeline *Pipeline
	composer *Composer
	persist  Persister

	mu        sync.Mutex
	mounted   bool
	unmounted bool
	dispose   Disposer
	unwatch   func()

	// loadMu orders loads.Add against Wait; draining rejects new loads.
	loadMu   sync.Mutex
	draining bool
	loads    sync.WaitGroup
}

// NewWall builds a wall from cfg.
func NewWall(cfg WallConfig) *Wall {
	storeOpts := []StoreOption{WithOptimisticRetention(cfg.OptimisticRetention)}
	if cfg.Persister != nil {
		storeOpts = append(storeOpts, WithPersister(cfg.Persister))
	}
	store := NewStore(storeOpts...)

	var loaderOpts []LoaderOption
	if cfg.DiscardStale {
		loaderOpts = append(loaderOpts, WithStaleDiscard())
	}

	pipeline := NewPipeline(cfg.Backend, cfg.Blobs, store, WithAuthor(cfg.Author))
	return &Wall{
		store:    store,
		loader:   NewLoader(cfg.Backend, store, loaderOpts...),
		listener: NewListener(cfg.Backend),
		pipeline: pipeline,
		composer: NewComposer(pipeline),
		persist:  cfg.Persister,
	}
}

// Store returns the wall's feed store.
func (w *Wall) Store() *Store { return w.store }

// Composer returns the wall's input fields.
func (w *Wall) Composer() *Composer { return w.composer }

// Pipeline returns the wall's submission pipeline.
func (w *Wall) Pipeline() *Pipeline { return w.pipeline }

// Mount restores the persisted snapshot, loads once, and subscribes to
// changes. A failed initial load is logged and leaves the restored view in
// place; only a failed subscription fails the mount. While mounted, every
// change of the view is saved through the persister.
func (w *Wall) Mount(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.unmounted {
		return errUnmounted
	}
	if w.mounted {
		return errAlreadyMounted
	}

	if err := w.store.Restore(); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "feed snapshot not restored", slog.String("error", err.Error()))
	}

	if err := w.loader.Load(ctx); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "initial feed load failed", slog.String("error", err.Error()))
	}

	// Listener-driven loads outlive the mount context's cancellation.
	loadCtx := context.WithoutCancel(ctx)
	dispose, err := w.listener.Subscribe(ctx, func(ChangeEvent) {
		w.startLoad(loadCtx)
	})
	if err != nil {
		return err
	}

	w.dispose = dispose
	if w.persist != nil {
		w.unwatch = w.store.Watch(w.save)
	}
	w.mounted = true
	return nil
}

func (w *Wall) startLoad(ctx context.Context) {
	w.loadMu.Lock()
	defer w.loadMu.Unlock()
	if w.draining {
		return
	}
	w.loads.Add(1)
	go func() {
		defer w.loads.Done()
		_ = w.loader.Load(ctx)
	}()
}

func (w *Wall) save(posts []models.Post) {
	if err := w.persist.Save(posts); err != nil {
		observability.GlobalLogger.Warn("feed snapshot not saved", slog.String("error", err.Error()))
	}
}

// Reload runs a manual reconciliation pass.
func (w *Wall) Reload(ctx context.Context) error {
	return w.loader.Load(ctx)
}

// Unmount disposes the subscription, persists the snapshot, and closes the
// store so results of in-flight operations are dropped.
func (w *Wall) Unmount(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.unmounted {
		return
	}
	w.unmounted = true

	if w.dispose != nil {
		w.dispose()
	}
	if w.unwatch != nil {
		w.unwatch()
	}
	w.loadMu.Lock()
	w.draining = true
	w.loadMu.Unlock()

	if err := w.store.Persist(); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "feed snapshot not saved", slog.String("error", err.Error()))
	}
	w.store.Close()
}

// Wait blocks until listener-triggered loads started so far have finished.
// Loads triggered meanwhile start after it returns.
func (w *Wall) Wait() {
	w.loadMu.Lock()
	defer w.loadMu.Unlock()
	w.loads.Wait()
}
