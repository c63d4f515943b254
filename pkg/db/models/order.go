package models

import (
	"time"

	dbtypes "github.com/Piotrek1987/ds-online-shop/pkg/db/types"
)

// Order is the relational form of a recorded checkout. Rows are insert-only.
type Order struct {
	ID        uint         `gorm:"primaryKey;autoIncrement"`
	OrderID   string       `gorm:"column:order_id;type:varchar(8);not null;uniqueIndex"`
	UserEmail string       `gorm:"column:user_email;type:text;not null;index"`
	Name      string       `gorm:"column:name;type:text;not null"`
	Email     string       `gorm:"column:email;type:text;not null"`
	Address   string       `gorm:"column:address;type:text;not null"`
	PlacedAt  time.Time    `gorm:"column:placed_at;not null"`
	Items     dbtypes.JSON `gorm:"column:items;type:text;not null"`
	Total     int64        `gorm:"column:total;not null"`
	CreatedAt time.Time    `gorm:"column:created_at;autoCreateTime"`
}

func (Order) TableName() string { return "orders" }
