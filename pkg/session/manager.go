package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/talisman"
	"github.com/aretw0/talisman/internal/logging"
	"github.com/aretw0/talisman/pkg/domain"
	"github.com/aretw0/talisman/pkg/ports"
	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a distributed session lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// Engine creates and resumes conversations. *talisman.Engine satisfies it.
type Engine interface {
	NewConversation(id string, profile domain.Profile) *talisman.Conversation
	Resume(snap *domain.Snapshot) *talisman.Conversation
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// liveEntry is one registered conversation and its write-behind state.
type liveEntry struct {
	conv   *talisman.Conversation
	saving atomic.Bool
	dirty  atomic.Bool
}

// Manager owns the live conversations of a host.
// Lock entries are reference counted so unused ones are garbage collected.
type Manager struct {
	engine  Engine
	store   ports.SnapshotStore
	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	locks  map[string]*lockEntry
	live   map[string]*liveEntry
	closed bool

	persisting sync.WaitGroup
}

// Option configures the Manager.
type Option func(*Manager)

// WithStore persists snapshots so conversations can be resumed after a restart.
func WithStore(store ports.SnapshotStore) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager that builds conversations with engine.
func NewManager(engine Engine, opts ...Option) *Manager {
	m := &Manager{
		engine:  engine,
		lockTTL: DefaultLockTTL,
		locks:   make(map[string]*lockEntry),
		live:    make(map[string]*liveEntry),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu and call release after unlocking it.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[sessionID]
	if !ok {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry when it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[sessionID]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock runs fn while holding the local and, if configured, the distributed lock
// of the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}
	return fn(ctx)
}

// Create registers a new conversation in the initial step. The caller plays the
// welcome by sending the start event.
func (m *Manager) Create(ctx context.Context, profile domain.Profile) (*talisman.Conversation, error) {
	return m.create(ctx, uuid.NewString(), profile)
}

// LoadOrCreate resumes sessionID if it is live or stored, and otherwise creates it.
// loaded reports whether an existing conversation was returned.
func (m *Manager) LoadOrCreate(ctx context.Context, sessionID string, profile domain.Profile) (conv *talisman.Conversation, loaded bool, err error) {
	if sessionID == "" {
		conv, err = m.Create(ctx, profile)
		return conv, false, err
	}
	conv, err = m.Get(ctx, sessionID)
	if err == nil {
		return conv, true, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, false, err
	}
	conv, err = m.create(ctx, sessionID, profile)
	return conv, false, err
}

func (m *Manager) create(ctx context.Context, id string, profile domain.Profile) (*talisman.Conversation, error) {
	var conv *talisman.Conversation
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		conv = m.engine.NewConversation(id, profile)
		if err := m.register(conv); err != nil {
			conv.Close()
			return err
		}
		return m.save(ctx, conv)
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("conversation created", "session_id", id)
	return conv, nil
}

// Get returns the live conversation, resuming it from the store when needed.
// Returns domain.ErrSessionNotFound if it is neither live nor stored.
func (m *Manager) Get(ctx context.Context, sessionID string) (*talisman.Conversation, error) {
	if conv, ok := m.lookup(sessionID); ok {
		return conv, nil
	}
	if m.store == nil {
		return nil, domain.ErrSessionNotFound
	}

	var conv *talisman.Conversation
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		if live, ok := m.lookup(sessionID); ok {
			conv = live
			return nil
		}
		snap, err := m.store.Load(ctx, sessionID)
		if err != nil {
			return err
		}
		conv = m.engine.Resume(snap)
		if err := m.register(conv); err != nil {
			conv.Close()
			return err
		}
		m.logger.Info("conversation resumed", "session_id", sessionID, "step", snap.State.Step)
		return nil
	})
	return conv, err
}

// Do runs fn on the conversation while holding its session lock, then persists it.
func (m *Manager) Do(ctx context.Context, sessionID string, fn func(context.Context, *talisman.Conversation) error) error {
	conv, err := m.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		if err := fn(ctx, conv); err != nil {
			return err
		}
		return m.save(ctx, conv)
	})
}

// Persist saves the current snapshot of a live conversation.
func (m *Manager) Persist(ctx context.Context, sessionID string) error {
	conv, ok := m.lookup(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return m.save(ctx, conv)
}

// Inspect returns the snapshot of a conversation without resuming it.
func (m *Manager) Inspect(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	if conv, ok := m.lookup(sessionID); ok {
		return conv.Snapshot(), nil
	}
	if m.store == nil {
		return nil, domain.ErrSessionNotFound
	}
	return m.store.Load(ctx, sessionID)
}

// Delete closes the conversation and removes its snapshot.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m.mu.Lock()
		entry, ok := m.live[sessionID]
		delete(m.live, sessionID)
		m.mu.Unlock()

		if ok {
			entry.conv.Close()
		}
		if m.store != nil {
			return m.store.Delete(ctx, sessionID)
		}
		if !ok {
			return domain.ErrSessionNotFound
		}
		return nil
	})
}

// List returns the IDs of live and stored conversations, sorted.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.live))
	for id := range m.live {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	if m.store != nil {
		stored, err := m.store.List(ctx)
		if err != nil {
			return nil, err
		}
		ids = append(ids, stored...)
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// Close stops every live conversation and flushes its final snapshot.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	entries := make([]*liveEntry, 0, len(m.live))
	for _, e := range m.live {
		entries = append(entries, e)
	}
	m.live = make(map[string]*liveEntry)
	m.mu.Unlock()

	for _, e := range entries {
		e.conv.Close()
	}
	m.persisting.Wait()

	var errs []error
	for _, e := range entries {
		if err := m.save(ctx, e.conv); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) lookup(sessionID string) (*talisman.Conversation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live[sessionID]
	if !ok {
		return nil, false
	}
	return e.conv, true
}

func (m *Manager) register(conv *talisman.Conversation) error {
	entry := &liveEntry{conv: conv}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return talisman.ErrClosed
	}
	m.live[conv.ID()] = entry
	m.mu.Unlock()

	if m.store != nil {
		conv.OnChange(func() { m.schedule(entry) })
	}
	return nil
}

// schedule saves the conversation in the background. Changes arriving while a save is
// running are coalesced into one more save.
func (m *Manager) schedule(e *liveEntry) {
	e.dirty.Store(true)
	if !e.saving.CompareAndSwap(false, true) {
		return
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		e.saving.Store(false)
		return
	}
	m.persisting.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.persisting.Done()
		for {
			e.dirty.Store(false)
			if _, live := m.lookup(e.conv.ID()); !live {
				e.saving.Store(false)
				return
			}
			if err := m.save(context.Background(), e.conv); err != nil {
				m.logger.Warn("snapshot save failed", "session_id", e.conv.ID(), "err", err)
			}
			e.saving.Store(false)
			if !e.dirty.Load() || !e.saving.CompareAndSwap(false, true) {
				return
			}
		}
	}()
}

func (m *Manager) save(ctx context.Context, conv *talisman.Conversation) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.Save(ctx, conv.ID(), conv.Snapshot()); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}
