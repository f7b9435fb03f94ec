package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/ppiankov/canari/internal/model"
)

// documentRow is one document in the shared documents table.
// Seq orders a collection by insertion.
type documentRow struct {
	Seq        uint64         `gorm:"primaryKey;autoIncrement"`
	Collection string         `gorm:"size:255;not null;uniqueIndex:idx_collection_doc"`
	DocID      string         `gorm:"size:36;not null;uniqueIndex:idx_collection_doc"`
	Body       datatypes.JSON `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (documentRow) TableName() string { return "canari_documents" }

func (r documentRow) document() (Document, error) {
	f, err := decodeFields(r.Body)
	if err != nil {
		return Document{}, fmt.Errorf("corrupt document %s: %w", r.DocID, err)
	}
	return Document{ID: r.DocID, CreatedAt: r.CreatedAt, Fields: f}, nil
}

// SQLStore keeps documents in a MySQL table through gorm
type SQLStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSQLStore opens the database, tunes the pool and migrates the table
func NewSQLStore(cfg model.MySQLConfig) (*SQLStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%w: store.mysql.dsn is required", model.ErrInvalidConfiguration)
	}
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns >= 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return NewSQLStoreFromDB(db)
}

// NewSQLStoreFromDB uses an open gorm handle and migrates the table
func NewSQLStoreFromDB(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, fmt.Errorf("migrate documents table: %w", err)
	}
	return &SQLStore{db: db, now: time.Now}, nil
}

func (s *SQLStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var row documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Document{}, notFound(collection, id)
	}
	if err != nil {
		return Document{}, err
	}
	return row.document()
}

func (s *SQLStore) Create(ctx context.Context, collection string, fields Fields) (string, error) {
	ids, err := s.CreateMany(ctx, collection, []Fields{fields})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// CreateMany inserts every document inside one transaction
func (s *SQLStore) CreateMany(ctx context.Context, collection string, docs []Fields) ([]string, error) {
	if len(docs) == 0 {
		return []string{}, nil
	}

	now := s.now().UTC()
	ids := make([]string, len(docs))
	rows := make([]documentRow, len(docs))
	for i, f := range docs {
		if f == nil {
			f = Fields{}
		}
		body, err := json.Marshal(f)
		if err != nil {
			return nil, fmt.Errorf("encode document: %w", err)
		}
		ids[i] = uuid.NewString()
		rows[i] = documentRow{Collection: collection, DocID: ids[i], Body: datatypes.JSON(body), CreatedAt: now, UpdatedAt: now}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Update locks the row, merges and writes the body back in one transaction
func (s *SQLStore) Update(ctx context.Context, collection, id string, patch Fields) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row documentRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("collection = ? AND doc_id = ?", collection, id).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(collection, id)
		}
		if err != nil {
			return err
		}

		doc, err := row.document()
		if err != nil {
			return err
		}
		body, err := json.Marshal(merge(doc.Fields, patch))
		if err != nil {
			return fmt.Errorf("encode document: %w", err)
		}
		return tx.Model(&row).Updates(map[string]any{
			"body":       datatypes.JSON(body),
			"updated_at": s.now().UTC(),
		}).Error
	})
}

func (s *SQLStore) List(ctx context.Context, collection string) ([]Document, error) {
	var rows []documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("seq").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]Document, 0, len(rows))
	for _, r := range rows {
		doc, err := r.document()
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
