package domain

import (
	"context"
	"time"
)

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string // "user"/"admin"
	ConfirmedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) Confirmed() bool { return u.ConfirmedAt != nil }

// UserRepository 未找到时返回 (nil, nil)
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	MarkConfirmed(ctx context.Context, id string, at time.Time) error
	UpdatePassword(ctx context.Context, id, hash string) error
	SetRole(ctx context.Context, id, role string) error
	List(ctx context.Context, offset, limit int) ([]User, int64, error)
	SoftDelete(ctx context.Context, id string) error
}
