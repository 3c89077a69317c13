package watchlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserWatchlist is the persisted record: one row per user holding the full
// symbol array. Display order is always re-derived by sorting, so the array
// order carries no meaning.
type UserWatchlist struct {
	UserID    string         `json:"user_id" gorm:"primaryKey;type:uuid"`
	Symbols   pq.StringArray `json:"symbols" gorm:"type:text[];not null"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName keeps the table name aligned with the hosted schema.
func (UserWatchlist) TableName() string { return "user_watchlists" }

// Store persists user watchlists in Postgres.
//
// Add and Remove are read-modify-write over the full array: concurrent
// sessions for the same user race and the last writer wins. There is no
// version column; the record is small and self-heals on the next load.
type Store struct {
	db *gorm.DB
}

func NewStore(connStr string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate automatically migrates the database schema using GORM models.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&UserWatchlist{}); err != nil {
		return fmt.Errorf("failed to auto migrate schema: %w", err)
	}
	return nil
}

// GetOrCreate returns the symbol set for userID, creating an empty record
// if none exists. Creation uses ON CONFLICT DO NOTHING followed by a
// re-read, so concurrent first access for the same user converges on a
// single record.
func (s *Store) GetOrCreate(ctx context.Context, userID string) ([]string, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("watchlist: invalid user id %q: %w", userID, err)
	}

	var row UserWatchlist
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if err == nil {
		return row.Symbols, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("watchlist: reading list for user %s: %w", userID, err)
	}

	fresh := UserWatchlist{UserID: userID, Symbols: pq.StringArray{}}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&fresh).Error
	if err != nil {
		return nil, fmt.Errorf("watchlist: creating list for user %s: %w", userID, err)
	}

	// Re-read so a concurrent creator's contents win over our empty insert.
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error; err != nil {
		return nil, fmt.Errorf("watchlist: re-reading list for user %s: %w", userID, err)
	}
	return row.Symbols, nil
}

// Add appends symbol to the user's list and persists the full updated
// array. Adding a symbol already present is a no-op returning the current
// set, so the persisted list never holds duplicates.
func (s *Store) Add(ctx context.Context, userID, symbol string) ([]string, error) {
	symbol = Normalize(symbol)
	current, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if contains(current, symbol) {
		return current, nil
	}

	updated := append(append([]string{}, current...), symbol)
	if err := s.upsert(ctx, userID, updated); err != nil {
		return nil, fmt.Errorf("watchlist: adding %s for user %s: %w", symbol, userID, err)
	}
	return updated, nil
}

// Remove filters symbol out of the user's list and persists the result.
// Removing an absent symbol is a no-op.
func (s *Store) Remove(ctx context.Context, userID, symbol string) ([]string, error) {
	symbol = Normalize(symbol)
	current, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !contains(current, symbol) {
		return current, nil
	}

	updated := filter(current, symbol)
	if err := s.upsert(ctx, userID, updated); err != nil {
		return nil, fmt.Errorf("watchlist: removing %s for user %s: %w", symbol, userID, err)
	}
	return updated, nil
}

func (s *Store) upsert(ctx context.Context, userID string, symbols []string) error {
	row := UserWatchlist{UserID: userID, Symbols: pq.StringArray(symbols)}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"symbols", "updated_at"}),
		}).
		Create(&row).Error
}

// Normalize upper-cases and trims a ticker symbol.
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func contains(symbols []string, symbol string) bool {
	for _, s := range symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

func filter(symbols []string, symbol string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s != symbol {
			out = append(out, s)
		}
	}
	return out
}
