package watchlist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// DefaultSymbols seeds a brand-new guest watchlist.
var DefaultSymbols = []string{
	"AAPL", "MSFT", "NVDA", "AMZN", "META", "AVGO",
	"GOOGL", "GOOG", "TSLA", "COST", "WMT", "PLTR",
}

// FileStore persists a single guest watchlist in a JSON file. It backs the
// unauthenticated variant where no identity provider or database is
// configured. The userID argument is ignored; every guest shares one list.
type FileStore struct {
	mu   sync.Mutex
	path string
}

type fileRecord struct {
	Symbols []string `json:"symbols"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// GetOrCreate returns the stored symbols, seeding the file with the default
// large-cap list on first access.
func (f *FileStore) GetOrCreate(ctx context.Context, _ string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

func (f *FileStore) Add(ctx context.Context, _ string, symbol string) ([]string, error) {
	symbol = Normalize(symbol)
	f.mu.Lock()
	defer f.mu.Unlock()

	current, err := f.load()
	if err != nil {
		return nil, err
	}
	if contains(current, symbol) {
		return current, nil
	}
	updated := append(current, symbol)
	if err := f.save(updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (f *FileStore) Remove(ctx context.Context, _ string, symbol string) ([]string, error) {
	symbol = Normalize(symbol)
	f.mu.Lock()
	defer f.mu.Unlock()

	current, err := f.load()
	if err != nil {
		return nil, err
	}
	if !contains(current, symbol) {
		return current, nil
	}
	updated := filter(current, symbol)
	if err := f.save(updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (f *FileStore) load() ([]string, error) {
	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		seeded := append([]string{}, DefaultSymbols...)
		if err := f.save(seeded); err != nil {
			return nil, err
		}
		return seeded, nil
	}
	if err != nil {
		return nil, fmt.Errorf("watchlist: reading %s: %w", f.path, err)
	}

	var rec fileRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("watchlist: parsing %s: %w", f.path, err)
	}
	return rec.Symbols, nil
}

func (f *FileStore) save(symbols []string) error {
	raw, err := json.MarshalIndent(fileRecord{Symbols: symbols}, "", "  ")
	if err != nil {
		return fmt.Errorf("watchlist: encoding %s: %w", f.path, err)
	}
	if err := os.WriteFile(f.path, raw, 0o644); err != nil {
		return fmt.Errorf("watchlist: writing %s: %w", f.path, err)
	}
	return nil
}
