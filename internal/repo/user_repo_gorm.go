package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"go-gin-marketplace/internal/domain"
	"go-gin-marketplace/internal/feature/user"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	m := user.FromDomain(u)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	u.CreatedAt, u.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *UserRepo) findOne(ctx context.Context, cond string, arg any) (*domain.User, error) {
	var m user.UserModel
	err := r.db.WithContext(ctx).Take(&m, cond, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

func (r *UserRepo) MarkConfirmed(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&user.UserModel{}).
		Where("id = ? AND confirmed_at IS NULL", id).
		Update("confirmed_at", at).Error
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	res := r.db.WithContext(ctx).Model(&user.UserModel{}).Where("id = ?", id).Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *UserRepo) SetRole(ctx context.Context, id, role string) error {
	res := r.db.WithContext(ctx).Model(&user.UserModel{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// mysql 值未变化时也返回 0
		var n int64
		if err := r.db.WithContext(ctx).Model(&user.UserModel{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}

func (r *UserRepo) List(ctx context.Context, offset, limit int) ([]domain.User, int64, error) {
	tx := r.db.WithContext(ctx).Model(&user.UserModel{}).Session(&gorm.Session{})
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var ms []user.UserModel
	if err := tx.Offset(offset).Limit(limit).Order("created_at desc").Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.User, 0, len(ms))
	for i := range ms {
		out = append(out, *ms[i].ToDomain())
	}
	return out, total, nil
}

func (r *UserRepo) SoftDelete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&user.UserModel{}).Error
}
