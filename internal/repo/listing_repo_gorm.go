package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"go-gin-marketplace/internal/domain"
	"go-gin-marketplace/internal/feature/listing"
	"go-gin-marketplace/pkg/utils"
)

type ListingRepo struct{ db *gorm.DB }

func NewListingRepo(db *gorm.DB) *ListingRepo { return &ListingRepo{db: db} }

var (
	_ domain.ListingRepository = (*ListingRepo)(nil)
	_ listing.BatchSource      = (*ListingRepo)(nil)
)

func (r *ListingRepo) Create(ctx context.Context, l *domain.Listing) error {
	if l.ID == "" {
		l.ID = utils.NewID()
	}
	m := listing.FromDomain(l)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	l.CreatedAt = m.CreatedAt
	return nil
}

func (r *ListingRepo) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	var m listing.ListingModel
	err := r.db.WithContext(ctx).Take(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

func (r *ListingRepo) CountByOwner(ctx context.Context, ownerKey string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&listing.ListingModel{}).Where("user_id = ?", ownerKey).Count(&n).Error
	return n, err
}

type listingWithCount struct {
	listing.ListingModel `gorm:"embedded"`
	OwnerListingCount    int64
}

// FindWithOwnerCount 一条 SQL 取 listing + 同 owner 的数量（含自身）
func (r *ListingRepo) FindWithOwnerCount(ctx context.Context, id string) (*domain.Listing, int64, error) {
	db := r.db.WithContext(ctx)
	sub := db.Table("listings AS o").Select("COUNT(*)").Where("o.user_id = listings.user_id")

	var row listingWithCount
	err := db.Model(&listing.ListingModel{}).
		Select("listings.*, (?) AS owner_listing_count", sub).
		Where("listings.id = ?", id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return row.ListingModel.ToDomain(), row.OwnerListingCount, nil
}

// Browse 公开列表：排除草稿，按时间倒序
func (r *ListingRepo) Browse(ctx context.Context, f domain.ListingFilter) ([]domain.Listing, int64, error) {
	q := r.db.WithContext(ctx).Model(&listing.ListingModel{}).Where("is_draft = ?", false)
	if s := strings.TrimSpace(f.Q); s != "" {
		q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var ms []listing.ListingModel
	if err := q.Order("created_at DESC").Order("id").Offset(f.Offset).Limit(f.Limit).Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	return toDomainListings(ms), total, nil
}

// ListByOwner 包含草稿，仅供 owner 自己看
func (r *ListingRepo) ListByOwner(ctx context.Context, ownerKey string) ([]domain.Listing, error) {
	var ms []listing.ListingModel
	err := r.db.WithContext(ctx).Where("user_id = ?", ownerKey).Order("created_at DESC").Find(&ms).Error
	if err != nil {
		return nil, err
	}
	return toDomainListings(ms), nil
}

func (r *ListingRepo) Candidates(ctx context.Context, category, excludeID string, excludeSold bool, limit int) ([]domain.Listing, error) {
	q := r.db.WithContext(ctx).Model(&listing.ListingModel{}).
		Where("category = ? AND id <> ? AND is_draft = ?", category, excludeID, false)
	if excludeSold {
		q = q.Where("is_sold = ?", false)
	}
	var ms []listing.ListingModel
	if err := q.Order("created_at DESC").Limit(limit).Find(&ms).Error; err != nil {
		return nil, err
	}
	return toDomainListings(ms), nil
}

// SetFlags 以 id + owner 定位；不属于该 owner 视同不存在
func (r *ListingRepo) SetFlags(ctx context.Context, id, ownerKey string, upd domain.FlagUpdate) (bool, error) {
	vals := map[string]any{}
	if upd.IsDraft != nil {
		vals["is_draft"] = *upd.IsDraft
	}
	if upd.IsSold != nil {
		vals["is_sold"] = *upd.IsSold
	}
	scope := r.db.WithContext(ctx).Model(&listing.ListingModel{}).Where("id = ? AND user_id = ?", id, ownerKey)
	if len(vals) > 0 {
		res := scope.Session(&gorm.Session{}).Updates(vals)
		if res.Error != nil {
			return false, res.Error
		}
		if res.RowsAffected > 0 {
			return true, nil
		}
	}
	// mysql 值未变化时 RowsAffected 为 0，再确认一次归属
	var n int64
	if err := scope.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *ListingRepo) Delete(ctx context.Context, id, ownerKey string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerKey).Delete(&listing.ListingModel{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func toDomainListings(ms []listing.ListingModel) []domain.Listing {
	out := make([]domain.Listing, 0, len(ms))
	for i := range ms {
		out = append(out, *ms[i].ToDomain())
	}
	return out
}
