package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormStore persists records through gorm. The (tenant_id, icv) primary key
// and the uuid and (tenant_id, invoice_number) unique indexes reject
// duplicates even across processes.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open gorm connection and migrates the records table.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate compliance records: %w", err)
	}
	return &GormStore{db: db}, nil
}

// OpenSQLite opens (or creates) a SQLite ledger at path.
func OpenSQLite(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	return NewGormStore(db)
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) Last(ctx context.Context, tenantID string) (*Record, error) {
	return lastRecord(s.db.WithContext(ctx), tenantID)
}

func (s *GormStore) Append(ctx context.Context, rec *Record) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lastICV int64
		last, err := lastRecord(tx, rec.TenantID)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		default:
			lastICV = last.ICV
		}

		if rec.ICV != lastICV+1 {
			return fmt.Errorf("%w: tenant %s expects ICV %d, got %d", ErrConflict, rec.TenantID, lastICV+1, rec.ICV)
		}
		if err := tx.Create(rec).Error; err != nil {
			if isDuplicateKey(err) {
				return fmt.Errorf("%w: %v", ErrConflict, err)
			}
			return fmt.Errorf("insert compliance record: %w", err)
		}
		return nil
	})
}

func (s *GormStore) List(ctx context.Context, tenantID string) ([]Record, error) {
	var records []Record
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("icv ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list compliance records: %w", err)
	}
	return records, nil
}

func lastRecord(db *gorm.DB, tenantID string) (*Record, error) {
	var rec Record
	err := db.Where("tenant_id = ?", tenantID).
		Order("icv DESC").
		Limit(1).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load last compliance record: %w", err)
	}
	return &rec, nil
}

// SQLite extended result codes for constraint violations.
const (
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

// isDuplicateKey reports whether err is a unique or primary key violation.
// glebarez/sqlite does not translate constraint errors to
// gorm.ErrDuplicatedKey, so the driver code is checked as well.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		switch coded.Code() {
		case sqliteConstraintPrimaryKey, sqliteConstraintUnique:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
