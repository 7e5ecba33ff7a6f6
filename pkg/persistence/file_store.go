package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joripage/crossbook/pkg/orderbook"
	"go.uber.org/zap"
)

// FileStore keeps the active orders as one JSON document. Every persist
// rewrites the whole file through a temp file and a rename, so a reader never
// sees a half-written snapshot.
type FileStore struct {
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("file store: %w", err)
	}
	return &FileStore{path: path}, nil
}

// LoadActiveOrders returns no orders when the file does not exist yet.
func (s *FileStore) LoadActiveOrders(ctx context.Context) ([]orderbook.Order, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		zap.S().Infof("no snapshot at %s, starting with an empty book", s.path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errCorruptRecord, s.path, err)
	}
	return ToOrders(records)
}

func (s *FileStore) PersistActiveOrders(ctx context.Context, orders []orderbook.Order) error {
	data, err := json.MarshalIndent(FromOrders(orders), "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
