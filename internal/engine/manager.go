// Package engine owns the lifecycle of every backend instance: the in-process
// embedded engine, the same engine opened on a persistent single-writer
// database file, and remote descriptors reachable over HTTP.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/querydeck/querydeck/internal/models"
	srvErrors "github.com/querydeck/querydeck/pkg/errors"
)

// Handle is a live engine instance tagged with its scope. Remote scope has no
// handle; only embedded and persistent scopes carry one.
type Handle struct {
	Scope      models.Scope
	Descriptor models.ConnectionDescriptor
	DB         *sql.DB
}

// Refresher is the schema-refresh collaborator invoked after a scope switch
// and after DDL execution.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Config carries the lifecycle tuning knobs. The retry and settle constants
// absorb the platform's asynchronous exclusive-lock release.
type Config struct {
	MaxOpenAttempts    uint
	OpenBackoffInitial time.Duration
	SettleDelay        time.Duration
}

// DefaultConfig returns the tuning that absorbs lock release on the reference
// platform: 4 attempts at 1.5s, 3s, 6s, 12s, and a 2s settle after teardown.
func DefaultConfig() Config {
	return Config{
		MaxOpenAttempts:    4,
		OpenBackoffInitial: 1500 * time.Millisecond,
		SettleDelay:        2 * time.Second,
	}
}

// Manager creates, reuses and tears down engine handles. Embedded and
// persistent handles are cached across scope switches to avoid
// re-initialization cost; only one persistent handle may exist per database
// path process-wide, enforced by the injected AddressRegistry.
type Manager struct {
	log      *zap.SugaredLogger
	cfg      Config
	registry *AddressRegistry
	opener   Opener

	mu         sync.Mutex
	embedded   *Handle
	persistent *Handle
	current    models.ConnectionDescriptor
	hasCurrent bool
	refresher  Refresher
}

// NewManager builds a manager around an injected registry. A nil opener means
// the real engine opener.
func NewManager(cfg Config, registry *AddressRegistry, opener Opener) *Manager {
	if opener == nil {
		opener = duckdbOpener{}
	}
	return &Manager{
		log:      zap.S().Named("engine"),
		cfg:      cfg,
		registry: registry,
		opener:   opener,
	}
}

// SetRefresher installs the schema-refresh collaborator. Set after
// construction because the refresher reads schema through this manager.
func (m *Manager) SetRefresher(r Refresher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresher = r
}

// EnsureEmbedded creates the in-process engine once per session and caches
// it. Initialization failure leaves the cached state nil and is returned to
// the caller; nothing fails silently.
func (m *Manager) EnsureEmbedded(ctx context.Context) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureEmbeddedLocked(ctx)
}

func (m *Manager) ensureEmbeddedLocked(ctx context.Context) (*Handle, error) {
	if m.embedded != nil {
		return m.embedded, nil
	}

	db, err := m.opener.Open(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedded engine: %w", err)
	}

	m.embedded = &Handle{
		Scope:      models.ScopeEmbedded,
		Descriptor: models.ConnectionDescriptor{Scope: models.ScopeEmbedded, Name: "embedded"},
		DB:         db,
	}
	m.log.Infow("embedded engine initialized")
	return m.embedded, nil
}

// EnsurePersistent returns a handle for the descriptor's database path,
// reusing a live handle for the same path, tearing down a live handle for a
// different path first, and opening under exclusive access with the retry
// policy. An open attempt on a path already active in this process fails fast
// with a contention error before any backoff runs.
func (m *Manager) EnsurePersistent(ctx context.Context, desc models.ConnectionDescriptor) (*Handle, error) {
	if err := desc.Validate(); err != nil {
		return nil, srvErrors.NewConnectionInvalidError(err.Error())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.persistent != nil && m.persistent.Descriptor.Path == desc.Path {
		return m.persistent, nil
	}
	if m.persistent != nil {
		m.teardownLocked(ctx, m.persistent)
		m.persistent = nil
	}

	if err := m.registry.Acquire(desc.Path); err != nil {
		return nil, err
	}

	db, err := m.openWithRetry(ctx, desc.Path)
	if err != nil {
		m.registry.Release(desc.Path)
		return nil, err
	}

	m.persistent = &Handle{Scope: models.ScopePersistent, Descriptor: desc, DB: db}
	m.log.Infow("persistent engine opened", "path", desc.Path)
	return m.persistent, nil
}

// openWithRetry wraps the opener in the exponential backoff policy. Only
// transient contention is retried; every other failure is permanent. The
// final error carries the attempt count.
func (m *Manager) openWithRetry(ctx context.Context, path string) (*sql.DB, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = m.cfg.OpenBackoffInitial
	expo.Multiplier = 2
	expo.RandomizationFactor = 0

	attempts := 0
	db, err := backoff.Retry(ctx, func() (*sql.DB, error) {
		attempts++
		db, err := m.opener.Open(ctx, path)
		if err != nil {
			if srvErrors.IsTransientContentionError(err) {
				m.log.Debugw("open contention, will retry", "path", path, "attempt", attempts)
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return db, nil
	}, backoff.WithBackOff(expo), backoff.WithMaxTries(m.cfg.MaxOpenAttempts))
	if err != nil {
		return nil, fmt.Errorf("failed to open %q after %d attempts: %w", path, attempts, err)
	}
	return db, nil
}

// OpenRemote validates reachability and records the descriptor as current.
// Remote scope has no local handle and needs no teardown when switching away.
func (m *Manager) OpenRemote(ctx context.Context, desc models.ConnectionDescriptor) error {
	if err := desc.Validate(); err != nil {
		return srvErrors.NewConnectionInvalidError(err.Error())
	}

	client := NewRemoteClient(desc)
	if err := client.Ping(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = desc
	m.hasCurrent = true
	return nil
}

// Teardown closes a handle and releases its address reservation. The settle
// delay runs unconditionally, even when close fails, because the engine's
// exclusive-lock release is asynchronous and unordered relative to the close
// call; releasing the address before the lock settles makes the next open
// attempt spuriously contend.
func (m *Manager) Teardown(ctx context.Context, h *Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked(ctx, h)
	if m.persistent == h {
		m.persistent = nil
	}
	if m.embedded == h {
		m.embedded = nil
	}
}

func (m *Manager) teardownLocked(ctx context.Context, h *Handle) {
	if h == nil {
		return
	}
	if h.Scope == models.ScopePersistent {
		defer func() {
			m.settle(ctx)
			m.registry.Release(h.Descriptor.Path)
			m.log.Debugw("address released", "path", h.Descriptor.Path)
		}()
	}
	if h.DB != nil {
		if err := h.DB.Close(); err != nil {
			m.log.Warnw("engine close failed", "scope", h.Scope, "error", err)
		}
	}
}

func (m *Manager) settle(ctx context.Context) {
	if m.cfg.SettleDelay <= 0 {
		return
	}
	timer := time.NewTimer(m.cfg.SettleDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// SwitchCurrent routes to the right ensure/open call for the descriptor's
// scope, updates the current selection and triggers a schema refresh.
func (m *Manager) SwitchCurrent(ctx context.Context, desc models.ConnectionDescriptor) error {
	switch desc.Scope {
	case models.ScopeEmbedded:
		if _, err := m.EnsureEmbedded(ctx); err != nil {
			return err
		}
	case models.ScopePersistent:
		if _, err := m.EnsurePersistent(ctx, desc); err != nil {
			return err
		}
	case models.ScopeRemote:
		if err := m.OpenRemote(ctx, desc); err != nil {
			return err
		}
	default:
		return srvErrors.NewConnectionInvalidError(fmt.Sprintf("unknown scope %q", desc.Scope))
	}

	m.mu.Lock()
	m.current = desc
	m.hasCurrent = true
	refresher := m.refresher
	m.mu.Unlock()

	if refresher != nil {
		if err := refresher.Refresh(ctx); err != nil {
			m.log.Warnw("schema refresh after switch failed", "error", err)
		}
	}
	return nil
}

// Current returns the currently selected descriptor and, for local scopes,
// its live handle. Remote scope returns a nil handle.
func (m *Manager) Current() (*Handle, models.ConnectionDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasCurrent {
		return nil, models.ConnectionDescriptor{}, srvErrors.NewConnectionInvalidError("no connection selected")
	}

	switch m.current.Scope {
	case models.ScopeEmbedded:
		if m.embedded == nil {
			return nil, m.current, srvErrors.NewConnectionInvalidError("embedded engine not initialized")
		}
		return m.embedded, m.current, nil
	case models.ScopePersistent:
		if m.persistent == nil {
			return nil, m.current, srvErrors.NewConnectionInvalidError("persistent engine not open")
		}
		return m.persistent, m.current, nil
	case models.ScopeRemote:
		return nil, m.current, nil
	default:
		return nil, m.current, srvErrors.NewConnectionInvalidError(fmt.Sprintf("unknown scope %q", m.current.Scope))
	}
}

// Shutdown tears down every cached handle in cleanup order: persistent first
// so its address reservation is released, then embedded.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.persistent != nil {
		m.teardownLocked(ctx, m.persistent)
		m.persistent = nil
	}
	if m.embedded != nil {
		m.teardownLocked(ctx, m.embedded)
		m.embedded = nil
	}
	m.hasCurrent = false
}
