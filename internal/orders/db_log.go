package orders

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Piotrek1987/ds-online-shop/internal/repo"
	"github.com/Piotrek1987/ds-online-shop/pkg/db"
	"github.com/Piotrek1987/ds-online-shop/pkg/db/models"
	dbtypes "github.com/Piotrek1987/ds-online-shop/pkg/db/types"
	pkgerrors "github.com/Piotrek1987/ds-online-shop/pkg/errors"
	"gorm.io/gorm"
)

// DBLog records orders as rows of the orders table.
type DBLog struct {
	repo.Base
}

func NewDBLog(conn *gorm.DB) (*DBLog, error) {
	if conn == nil {
		return nil, fmt.Errorf("db connection required")
	}
	return &DBLog{Base: repo.NewBase(conn)}, nil
}

// Append inserts the order. A reused order id is reported as CONFLICT so the
// caller can retry with a fresh token.
func (l *DBLog) Append(ctx context.Context, order Order) error {
	row, err := toModel(order)
	if err != nil {
		return err
	}
	if err := l.DB(ctx).Create(row).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order id already used")
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// findByOrderID loads one recorded order.
func (l *DBLog) findByOrderID(ctx context.Context, orderID string) (*Order, error) {
	var row models.Order
	if err := l.DB(ctx).Where("order_id = ?", orderID).First(&row).Error; err != nil {
		return nil, err
	}
	return fromModel(row)
}

func toModel(order Order) (*models.Order, error) {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return nil, fmt.Errorf("encode order items: %w", err)
	}
	return &models.Order{
		OrderID:   order.OrderID,
		UserEmail: order.User,
		Name:      order.Name,
		Email:     order.Email,
		Address:   order.Address,
		PlacedAt:  order.DateTime.UTC(),
		Items:     dbtypes.JSON(items),
		Total:     order.Total,
	}, nil
}

func fromModel(row models.Order) (*Order, error) {
	var lines []Line
	if len(row.Items) > 0 {
		if err := json.Unmarshal(row.Items, &lines); err != nil {
			return nil, fmt.Errorf("decode order items: %w", err)
		}
	}
	return &Order{
		OrderID:  row.OrderID,
		User:     row.UserEmail,
		Name:     row.Name,
		Email:    row.Email,
		Address:  row.Address,
		DateTime: row.PlacedAt,
		Items:    lines,
		Total:    row.Total,
	}, nil
}
