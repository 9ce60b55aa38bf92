package listing

import (
	"time"

	"go-gin-marketplace/internal/domain"
)

type ListingModel struct {
	ID          string    `gorm:"primaryKey;type:varchar(32)" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Price       float64   `gorm:"not null;default:0" json:"price"`
	Location    string    `gorm:"size:200" json:"location"`
	LocationLat *float64  `json:"location_lat,omitempty"`
	LocationLng *float64  `json:"location_lng,omitempty"`
	Category    string    `gorm:"size:64;index:idx_listings_category" json:"category"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	Images      []string  `gorm:"serializer:json;type:text" json:"images"`
	Condition   string    `gorm:"size:32" json:"condition"`
	Description string    `gorm:"type:text" json:"description"`
	UserID      string    `gorm:"size:255;not null;index" json:"user_id"`
	UserName    string    `gorm:"size:64" json:"user_name"`
	UserImage   string    `gorm:"size:500" json:"user_image,omitempty"`
	IsDraft     bool      `gorm:"not null;default:false" json:"is_draft"`
	IsSold      bool      `gorm:"not null;default:false" json:"is_sold"`
}

func (ListingModel) TableName() string { return "listings" }

func (m *ListingModel) ToDomain() *domain.Listing {
	images := m.Images
	if images == nil {
		images = []string{}
	}
	return &domain.Listing{
		ID:          m.ID,
		Title:       m.Title,
		Price:       m.Price,
		Location:    m.Location,
		LocationLat: m.LocationLat,
		LocationLng: m.LocationLng,
		Category:    m.Category,
		CreatedAt:   m.CreatedAt,
		Images:      images,
		Condition:   m.Condition,
		Description: m.Description,
		UserID:      m.UserID,
		UserName:    m.UserName,
		UserImage:   m.UserImage,
		IsDraft:     m.IsDraft,
		IsSold:      m.IsSold,
	}
}

func FromDomain(l *domain.Listing) *ListingModel {
	return &ListingModel{
		ID:          l.ID,
		Title:       l.Title,
		Price:       l.Price,
		Location:    l.Location,
		LocationLat: l.LocationLat,
		LocationLng: l.LocationLng,
		Category:    l.Category,
		CreatedAt:   l.CreatedAt,
		Images:      l.Images,
		Condition:   l.Condition,
		Description: l.Description,
		UserID:      l.UserID,
		UserName:    l.UserName,
		UserImage:   l.UserImage,
		IsDraft:     l.IsDraft,
		IsSold:      l.IsSold,
	}
}
