package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Piotrek1987/ds-online-shop/pkg/logger"
)

// FileLog appends orders to a JSON Lines file. Each record, newline included,
// goes out in a single write followed by an fsync.
type FileLog struct {
	path string
	logg *logger.Logger

	mu   sync.Mutex
	file *os.File
}

// OpenFileLog opens (or creates) the log at path for appending.
func OpenFileLog(path string, logg *logger.Logger) (*FileLog, error) {
	if path == "" {
		return nil, fmt.Errorf("order log path required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create order log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open order log: %w", err)
	}
	return &FileLog{path: path, logg: logg, file: f}, nil
}

func (l *FileLog) Append(ctx context.Context, order Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	record, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	record = append(record, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return fmt.Errorf("order log closed")
	}
	if _, err := l.file.Write(record); err != nil {
		return fmt.Errorf("append order: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync order log: %w", err)
	}
	if l.logg != nil {
		l.logg.Debug(l.logg.WithField(ctx, "order_id", order.OrderID), "orders.appended")
	}
	return nil
}

func (l *FileLog) Path() string {
	return l.path
}

// Close releases the file handle. Appends after Close fail.
func (l *FileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
