package users

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Piotrek1987/ds-online-shop/internal/repo"
	"github.com/Piotrek1987/ds-online-shop/pkg/db"
	"github.com/Piotrek1987/ds-online-shop/pkg/db/models"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

// Repository stores shopper accounts. Emails are unique after
// NormalizeEmail; the users.email unique index enforces it, so two racing
// registrations cannot both succeed.
type Repository struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// Create returns ErrEmailTaken when the address is already registered.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	err := r.DB(ctx).Create(user).Error
	switch {
	case db.IsUniqueViolation(err, ""):
		return nil, fmt.Errorf("%w: %v", ErrEmailTaken, err)
	case err != nil:
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// FindByEmail returns ErrNotFound for unknown addresses.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.DB(ctx).Where("email = ?", NormalizeEmail(email)).Take(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}
