package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base is embedded by the gorm-backed stores (users, recorded orders) so
// every query runs on a connection bound to the caller's context.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection bound to ctx; a nil ctx yields the bare handle.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}
