package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trademantra/swingtrader-go/internal/models"
)

// MemoryStore is the in-process implementation of LedgerStore,
// PositionStore, and PendingSignalStore. It backs the simulator in tests
// and in deployments that run without a database.
type MemoryStore struct {
	mu        sync.RWMutex
	entries   map[string][]models.LedgerEntry
	positions map[string]*models.PaperPosition
	pending   map[string]*models.Signal
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:   make(map[string][]models.LedgerEntry),
		positions: make(map[string]*models.PaperPosition),
		pending:   make(map[string]*models.Signal),
	}
}

func (m *MemoryStore) AppendEntry(ctx context.Context, entry models.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.PortfolioID] = append(m.entries[entry.PortfolioID], entry)
	return nil
}

func (m *MemoryStore) Entries(ctx context.Context, portfolioID string) ([]models.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.LedgerEntry, len(m.entries[portfolioID]))
	copy(out, m.entries[portfolioID])
	return out, nil
}

func (m *MemoryStore) EntriesSince(ctx context.Context, portfolioID string, since time.Time) ([]models.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.LedgerEntry
	for _, e := range m.entries[portfolioID] {
		if !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemoryStore) SavePosition(ctx context.Context, pos *models.PaperPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *pos
	m.positions[pos.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdatePosition(ctx context.Context, pos *models.PaperPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.positions[pos.ID]; !ok {
		return fmt.Errorf("position %s not found", pos.ID)
	}
	cp := *pos
	m.positions[pos.ID] = &cp
	return nil
}

func (m *MemoryStore) GetPosition(ctx context.Context, id string) (*models.PaperPosition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pos, ok := m.positions[id]
	if !ok {
		return nil, fmt.Errorf("position %s not found", id)
	}
	cp := *pos
	return &cp, nil
}

func (m *MemoryStore) OpenPositions(ctx context.Context, portfolioID string) ([]*models.PaperPosition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.PaperPosition
	for _, pos := range m.positions {
		if pos.PortfolioID == portfolioID && pos.Status == models.PositionOpen {
			cp := *pos
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) OpenPositionsBySymbol(ctx context.Context, symbol string) ([]*models.PaperPosition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.PaperPosition
	for _, pos := range m.positions {
		if pos.Symbol == symbol && pos.Status == models.PositionOpen {
			cp := *pos
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) SavePending(ctx context.Context, sig *models.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sig
	m.pending[sig.ID] = &cp
	return nil
}

func (m *MemoryStore) GetPending(ctx context.Context, id string) (*models.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sig, ok := m.pending[id]
	if !ok {
		return nil, fmt.Errorf("pending signal %s not found", id)
	}
	cp := *sig
	return &cp, nil
}

func (m *MemoryStore) ListPending(ctx context.Context) ([]*models.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Signal
	for _, sig := range m.pending {
		if sig.Status == models.SignalStatusPendingApproval {
			cp := *sig
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) MarkStatus(ctx context.Context, id string, status models.SignalStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sig, ok := m.pending[id]
	if !ok {
		return fmt.Errorf("pending signal %s not found", id)
	}
	sig.Status = status
	return nil
}
