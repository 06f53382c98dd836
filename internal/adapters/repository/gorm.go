package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/tweets/internal/domain/model"
)

// tweetRow is the table mapping for the ORM store.
type tweetRow struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Message   string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the table name used by GORM.
func (tweetRow) TableName() string {
	return "tweets"
}

func (r tweetRow) toModel() model.Tweet {
	return model.Tweet{ID: r.ID, Message: r.Message, CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC()}
}

// GormStore persists tweets through GORM on SQLite.
type GormStore struct {
	db *gorm.DB

	settings
}

var _ Store = (*GormStore)(nil)

// OpenSQLite opens dsn with the sqlite dialector and migrates the tweets table.
func OpenSQLite(dsn string, opts ...Option) (*GormStore, error) {
	s := newSettings("gorm-store", opts)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Discard,
		NowFunc: s.now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite: %w", ErrOpen, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite: %w", ErrOpen, err)
	}
	// SQLite allows a single writer; serialize through one connection.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&tweetRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: migrate: %w", ErrOpen, err)
	}

	return &GormStore{db: db, settings: s}, nil
}

// All returns every tweet ordered by id.
func (s *GormStore) All(ctx context.Context) ([]model.Tweet, error) {
	var rows []tweetRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find all: %w", err)
	}
	return lo.Map(rows, func(r tweetRow, _ int) model.Tweet { return r.toModel() }), nil
}

// Get returns a tweet by primary key.
func (s *GormStore) Get(ctx context.Context, id int64) (model.Tweet, error) {
	row, err := first(s.db.WithContext(ctx), id)
	if err != nil {
		return model.Tweet{}, err
	}
	return row.toModel(), nil
}

// Create inserts a new row.
func (s *GormStore) Create(ctx context.Context, in model.Input) (model.Tweet, error) {
	row := tweetRow{Message: in.Message}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Tweet{}, fmt.Errorf("create: %w", err)
	}
	return row.toModel(), nil
}

// Update finds then updates the row inside one transaction.
func (s *GormStore) Update(ctx context.Context, id int64, in model.Input) (model.Tweet, error) {
	var out model.Tweet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := first(tx, id)
		if err != nil {
			return err
		}
		t := row.toModel()
		in.Apply(&t)
		row.Message = t.Message
		row.UpdatedAt = s.now()
		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("update: %w", err)
		}
		out = row.toModel()
		return nil
	})
	return out, err
}

// Delete finds then deletes the row inside one transaction.
func (s *GormStore) Delete(ctx context.Context, id int64) (model.Tweet, error) {
	var out model.Tweet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := first(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(&row).Error; err != nil {
			return fmt.Errorf("destroy: %w", err)
		}
		out = row.toModel()
		return nil
	})
	return out, err
}

// Count returns the number of rows.
func (s *GormStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&tweetRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Ping checks the underlying connection.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func first(db *gorm.DB, id int64) (tweetRow, error) {
	var row tweetRow
	err := db.First(&row, id).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return tweetRow{}, model.NewNotFound(id)
	case err != nil:
		return tweetRow{}, fmt.Errorf("find by primary key: %w", err)
	}
	return row, nil
}
