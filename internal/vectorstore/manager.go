package vectorstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Sinbad21/Chatbot/internal/logging"
	"github.com/Sinbad21/Chatbot/internal/tenant"
)

// ManagerConfig holds vector store manager settings.
type ManagerConfig struct {
	// BasePath is the directory holding one snapshot directory per
	// tenant.
	BasePath string
	// Dimension is the embedding dimension all tenant indexes use.
	Dimension int
}

// Manager owns the registry of live tenant indexes: lazy load on first
// use, in-memory retention for the process lifetime, save after every
// mutation.
//
// Locking: the registry map has its own mutex, distinct from per-tenant
// locks. Each tenant entry carries a RW lock: upserts take the write
// lock across normalize+append+persist as one unit, searches share the
// read lock. Operations on different tenants never contend.
type Manager struct {
	cfg     ManagerConfig
	logger  *logging.Logger
	metrics *Metrics

	mu      sync.Mutex
	tenants map[string]*tenantEntry
}

type tenantEntry struct {
	mu      sync.RWMutex
	once    sync.Once
	index   *TenantIndex
	loadErr error
}

// NewManager creates a Manager rooted at cfg.BasePath.
func NewManager(cfg ManagerConfig, logger *logging.Logger) (*Manager, error) {
	if cfg.BasePath == "" {
		return nil, fmt.Errorf("%w: base path required", ErrInvalidConfig)
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be > 0, got %d", ErrInvalidConfig, cfg.Dimension)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:     cfg,
		logger:  logger.Named("vectorstore"),
		metrics: NewMetrics(logger),
		tenants: make(map[string]*tenantEntry),
	}, nil
}

// entry returns the live entry for tenantID, loading the snapshot on
// first access. A load failure (corruption) is sticky: every access
// returns the same error until the tenant store is deleted.
func (m *Manager) entry(ctx context.Context, tenantID string) (*tenantEntry, error) {
	dir, err := tenant.StorePath(m.cfg.BasePath, tenantID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	e, ok := m.tenants[tenantID]
	if !ok {
		e = &tenantEntry{}
		m.tenants[tenantID] = e
	}
	m.mu.Unlock()

	e.once.Do(func() {
		ix, loadErr := loadSnapshot(dir, m.cfg.Dimension)
		if loadErr != nil {
			e.loadErr = loadErr
			m.logger.Error(ctx, "failed to load tenant store",
				zap.String("tenant_id", tenantID), zap.Error(loadErr))
			return
		}
		if ix == nil {
			ix, loadErr = NewTenantIndex(m.cfg.Dimension)
			if loadErr != nil {
				e.loadErr = loadErr
				return
			}
			m.logger.Info(ctx, "created new tenant store", zap.String("tenant_id", tenantID))
		} else {
			m.logger.Info(ctx, "loaded tenant store",
				zap.String("tenant_id", tenantID), zap.Int("vectors", ix.Count()))
		}
		e.index = ix
	})

	if e.loadErr != nil {
		return nil, e.loadErr
	}
	return e, nil
}

// GetOrCreate ensures a live index exists for the tenant, loading the
// snapshot if one is present and creating an empty index otherwise.
func (m *Manager) GetOrCreate(ctx context.Context, tenantID string) error {
	_, err := m.entry(ctx, tenantID)
	return err
}

// AddDocumentChunks appends vectors with their payloads to a tenant's
// index and persists the snapshot. Vectors and payloads must be equal
// length and positionally aligned; ordinal order is preserved.
//
// On ErrPersistFailed the in-memory index holds the new vectors but
// disk does not; the caller should treat the mutation as unconfirmed.
func (m *Manager) AddDocumentChunks(ctx context.Context, tenantID string, payloads []Payload, vectors [][]float32) error {
	start := time.Now()
	e, err := m.entry(ctx, tenantID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.index.Upsert(vectors, payloads); err != nil {
		return err
	}

	dir, _ := tenant.StorePath(m.cfg.BasePath, tenantID)
	if err := saveSnapshot(dir, e.index); err != nil {
		m.metrics.RecordPersistError(ctx, tenantID)
		m.logger.Error(ctx, "failed to persist tenant store",
			zap.String("tenant_id", tenantID), zap.Error(err))
		return err
	}

	m.metrics.RecordUpsert(ctx, tenantID, len(vectors), time.Since(start))
	m.logger.Info(ctx, "added chunks to tenant store",
		zap.String("tenant_id", tenantID),
		zap.Int("chunks", len(vectors)),
		zap.Int("total_vectors", e.index.Count()))
	return nil
}

// Search returns up to topK payloads for the query vector, ranked by
// descending cosine similarity. A tenant with no vectors (or no store
// at all) yields an empty result, not an error.
func (m *Manager) Search(ctx context.Context, tenantID string, query []float32, topK int) ([]SearchResult, error) {
	start := time.Now()
	e, err := m.entry(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	results, err := e.index.Search(query, topK)
	if err != nil {
		return nil, err
	}
	m.metrics.RecordSearch(ctx, tenantID, time.Since(start))
	return results, nil
}

// DeleteTenantStore removes a tenant's in-memory index and backing
// snapshot. Safe to call for a tenant with no store.
func (m *Manager) DeleteTenantStore(ctx context.Context, tenantID string) error {
	dir, err := tenant.StorePath(m.cfg.BasePath, tenantID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	e, ok := m.tenants[tenantID]
	delete(m.tenants, tenantID)
	m.mu.Unlock()

	if ok {
		// Wait out in-flight operations before removing files.
		e.mu.Lock()
		defer e.mu.Unlock()
	}

	if err := deleteSnapshot(dir); err != nil {
		return err
	}
	m.logger.Info(ctx, "deleted tenant store", zap.String("tenant_id", tenantID))
	return nil
}

// Stats returns statistics for a tenant's store.
func (m *Manager) Stats(ctx context.Context, tenantID string) (Stats, error) {
	e, err := m.entry(ctx, tenantID)
	if err != nil {
		return Stats{}, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Stats{VectorCount: e.index.Count()}, nil
}

// HasStore reports whether a snapshot exists on disk for the tenant,
// without loading it.
func (m *Manager) HasStore(tenantID string) (bool, error) {
	dir, err := tenant.StorePath(m.cfg.BasePath, tenantID)
	if err != nil {
		return false, err
	}
	return snapshotExists(dir), nil
}
