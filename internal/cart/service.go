package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/Piotrek1987/ds-online-shop/internal/catalog"
	pkgerrors "github.com/Piotrek1987/ds-online-shop/pkg/errors"
	"github.com/Piotrek1987/ds-online-shop/pkg/logger"
)

const (
	opAdd    = "add"
	opRemove = "remove"
	opUpdate = "update"
	opClear  = "clear"
)

type itemLookup interface {
	Lookup(id int) (catalog.Item, bool)
}

type mutationRecorder interface {
	IncCartMutation(op string)
}

// Service exposes the session cart operations used by the web surface.
type Service interface {
	View(ctx context.Context, sessionID string) (View, error)
	Add(ctx context.Context, sessionID string, itemID int) (catalog.Item, error)
	Remove(ctx context.Context, sessionID string, itemID int) (bool, error)
	Update(ctx context.Context, sessionID string, itemID int, action Action) (bool, error)
	Clear(ctx context.Context, sessionID string) error
}

// ServiceParams wires the cart service.
type ServiceParams struct {
	Store   Store
	Catalog itemLookup
	Metrics mutationRecorder
	Logger  *logger.Logger
}

type service struct {
	store   Store
	catalog itemLookup
	metrics mutationRecorder
	logg    *logger.Logger
}

// NewService builds a cart service backed by the provided store and catalog.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	return &service{
		store:   params.Store,
		catalog: params.Catalog,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

func (s *service) View(ctx context.Context, sessionID string) (View, error) {
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	return c.Materialize(s.catalog.Lookup), nil
}

// Add requires the item to exist in the catalog.
func (s *service) Add(ctx context.Context, sessionID string, itemID int) (catalog.Item, error) {
	item, ok := s.catalog.Lookup(itemID)
	if !ok {
		return catalog.Item{}, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return catalog.Item{}, err
	}
	c.Add(itemID)
	if err := s.save(ctx, sessionID, c, opAdd); err != nil {
		return catalog.Item{}, err
	}
	return item, nil
}

// Remove reports false when the item was not in the cart.
func (s *service) Remove(ctx context.Context, sessionID string, itemID int) (bool, error) {
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if !c.Remove(itemID) {
		return false, nil
	}
	return true, s.save(ctx, sessionID, c, opRemove)
}

func (s *service) Update(ctx context.Context, sessionID string, itemID int, action Action) (bool, error) {
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return false, err
	}
	found, err := c.Apply(itemID, action)
	if err != nil || !found {
		return found, err
	}
	return true, s.save(ctx, sessionID, c, opUpdate)
}

func (s *service) Clear(ctx context.Context, sessionID string) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	if err := s.store.Clear(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	s.record(opClear)
	return nil
}

func (s *service) load(ctx context.Context, sessionID string) (*Cart, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return c, nil
}

func (s *service) save(ctx context.Context, sessionID string, c *Cart, op string) error {
	if err := s.store.Save(ctx, sessionID, c); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	s.record(op)
	if s.logg != nil {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{"op": op, "entries": len(c.Entries())}), "cart.mutated")
	}
	return nil
}

func (s *service) record(op string) {
	if s.metrics != nil {
		s.metrics.IncCartMutation(op)
	}
}

func requireSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	return nil
}
