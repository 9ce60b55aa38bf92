package repo

import (
	"gorm.io/gorm"

	"go-gin-marketplace/internal/feature/listing"
	"go-gin-marketplace/internal/feature/user"
)

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&user.UserModel{}, &listing.ListingModel{})
}
