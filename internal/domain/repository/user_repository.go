package repository

import (
	"context"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/entity"
)

// UserRepository es el directorio de usuarios (solo lectura para el motor).
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
}
