package domain

import (
	"context"
	"time"
)

type Listing struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Price       float64   `json:"price" yaml:"price"`
	Location    string    `json:"location" yaml:"location"`
	LocationLat *float64  `json:"location_lat,omitempty" yaml:"location_lat"`
	LocationLng *float64  `json:"location_lng,omitempty" yaml:"location_lng"`
	Category    string    `json:"category" yaml:"category"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	Images      []string  `json:"images" yaml:"images"`
	Condition   string    `json:"condition" yaml:"condition"`
	Description string    `json:"description" yaml:"description"`
	UserID      string    `json:"user_id" yaml:"user_id"` // 归属键（邮箱）
	UserName    string    `json:"user_name" yaml:"user_name"`
	UserImage   string    `json:"user_image,omitempty" yaml:"user_image"`
	IsDraft     bool      `json:"is_draft" yaml:"is_draft"`
	IsSold      bool      `json:"is_sold" yaml:"is_sold"`
}

// OwnedBy 归属判断只做一次不透明键比较；空键永远不是 owner
func (l *Listing) OwnedBy(ownerKey string) bool {
	return ownerKey != "" && l.UserID == ownerKey
}

type ListingFilter struct {
	Q        string
	Category string
	MinPrice *float64
	MaxPrice *float64
	Offset   int
	Limit    int
}

// MaxPage 翻页上限，更大的页码按上限处理
const MaxPage = 10000

// PageOffset 页码收敛到 [1, MaxPage] 后换算 offset
func PageOffset(page, size int) (int, int) {
	page = min(max(page, 1), MaxPage)
	return page, (page - 1) * size
}

// FlagUpdate nil 字段不修改
type FlagUpdate struct {
	IsDraft *bool
	IsSold  *bool
}

// ListingRepository 未找到时返回 (nil, nil)
type ListingRepository interface {
	Create(ctx context.Context, l *Listing) error
	FindByID(ctx context.Context, id string) (*Listing, error)
	CountByOwner(ctx context.Context, ownerKey string) (int64, error)
	FindWithOwnerCount(ctx context.Context, id string) (*Listing, int64, error)
	Browse(ctx context.Context, f ListingFilter) ([]Listing, int64, error)
	ListByOwner(ctx context.Context, ownerKey string) ([]Listing, error)
	Candidates(ctx context.Context, category, excludeID string, excludeSold bool, limit int) ([]Listing, error)
	SetFlags(ctx context.Context, id, ownerKey string, upd FlagUpdate) (bool, error)
	Delete(ctx context.Context, id, ownerKey string) (bool, error)
}
