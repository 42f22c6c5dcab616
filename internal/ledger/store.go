package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned by Store.Last when a tenant has no records yet.
	ErrNotFound = errors.New("no compliance records for tenant")

	// ErrConflict is returned by Store.Append when the record does not extend
	// the tenant's chain by exactly one counter value, or repeats a UUID or a
	// tenant's invoice number.
	ErrConflict = errors.New("compliance record conflict")
)

// Record is the compliance metadata persisted for one posted invoice.
type Record struct {
	TenantID      string    `gorm:"primaryKey;size:64;uniqueIndex:idx_tenant_invoice_number" json:"tenant_id"`
	ICV           int64     `gorm:"primaryKey;autoIncrement:false" json:"icv"`
	InvoiceNumber string    `gorm:"size:128;not null;uniqueIndex:idx_tenant_invoice_number" json:"invoice_number"`
	UUID          string    `gorm:"size:36;not null;uniqueIndex" json:"uuid"`
	PreviousHash  string    `gorm:"size:128;not null" json:"previous_hash"`
	Hash          string    `gorm:"size:128;not null" json:"hash"`
	XML           string    `gorm:"type:text;not null" json:"xml"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName pins the table name used by GormStore.
func (Record) TableName() string {
	return "compliance_records"
}

// Store persists a tenant's append-only chain of records.
type Store interface {
	// Last returns the record with the highest ICV, or ErrNotFound.
	Last(ctx context.Context, tenantID string) (*Record, error)

	// Append stores rec, which must carry ICV = last ICV + 1. UUIDs are
	// unique across tenants and invoice numbers are unique per tenant; a
	// violation of either returns ErrConflict.
	Append(ctx context.Context, rec *Record) error

	// List returns all records of a tenant in ICV order.
	List(ctx context.Context, tenantID string) ([]Record, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]Record
	uuids   map[string]struct{}
	numbers map[string]map[string]struct{} // tenant -> invoice numbers
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]Record),
		uuids:   make(map[string]struct{}),
		numbers: make(map[string]map[string]struct{}),
	}
}

func (s *MemoryStore) Last(ctx context.Context, tenantID string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.records[tenantID]
	if len(chain) == 0 {
		return nil, ErrNotFound
	}
	last := chain[len(chain)-1]
	return &last, nil
}

func (s *MemoryStore) Append(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	chain := s.records[rec.TenantID]
	var lastICV int64
	if len(chain) > 0 {
		lastICV = chain[len(chain)-1].ICV
	}
	if rec.ICV != lastICV+1 {
		return fmt.Errorf("%w: tenant %s expects ICV %d, got %d", ErrConflict, rec.TenantID, lastICV+1, rec.ICV)
	}
	if _, dup := s.uuids[rec.UUID]; dup {
		return fmt.Errorf("%w: uuid %s already recorded", ErrConflict, rec.UUID)
	}
	numbers := s.numbers[rec.TenantID]
	if _, dup := numbers[rec.InvoiceNumber]; dup {
		return fmt.Errorf("%w: tenant %s already recorded invoice %s", ErrConflict, rec.TenantID, rec.InvoiceNumber)
	}

	if numbers == nil {
		numbers = make(map[string]struct{})
		s.numbers[rec.TenantID] = numbers
	}
	numbers[rec.InvoiceNumber] = struct{}{}
	s.uuids[rec.UUID] = struct{}{}
	s.records[rec.TenantID] = append(chain, *rec)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, tenantID string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.records[tenantID]
	out := make([]Record, len(chain))
	copy(out, chain)
	return out, nil
}
