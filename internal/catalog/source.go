package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Source yields the full item list. Reload calls it again on demand.
type Source interface {
	Load(ctx context.Context) ([]Item, error)
}

// FileSource reads a JSON array of items from disk.
type FileSource struct {
	Path string
}

func (f FileSource) Load(ctx context.Context) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %q: %w", f.Path, err)
	}
	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decoding catalog %q: %w", f.Path, err)
	}
	return items, nil
}

// StaticSource serves a fixed list; used by tests and seeding.
type StaticSource []Item

func (s StaticSource) Load(context.Context) ([]Item, error) {
	return append([]Item(nil), s...), nil
}
