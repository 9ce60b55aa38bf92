package router

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-gin-marketplace/internal/feature/listing"
	"go-gin-marketplace/internal/feature/user"
	"go-gin-marketplace/internal/transport/http/ez"
)

// MountAdminActions 管理端接口集中在这里注册
func MountAdminActions(admin *gin.RouterGroup, d AdminDeps) {
	ezAdmin := ez.New(admin, d.Log)

	// --- GET /admin/v1/users  用户列表 ---
	type listQ struct {
		Offset      int    `form:"offset,default=0"`
		Limit       int    `form:"limit,default=20"`
		Q           string `form:"q"`            // 按 email/name 模糊搜
		WithDeleted bool   `form:"with_deleted"` // 是否包含封禁
	}
	type userRow struct {
		ID          string     `json:"id"`
		Email       string     `json:"email"`
		Name        string     `json:"name"`
		Role        string     `json:"role"`
		ConfirmedAt *time.Time `json:"confirmedAt"`
		CreatedAt   time.Time  `json:"createdAt"`
	}
	type usersOut struct {
		Total int64     `json:"total"`
		Items []userRow `json:"items"`
	}
	ez.RegisterAction(ezAdmin, d.DB, ez.Action[listQ, usersOut]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: ez.BindQuery,
		Auth:   true,
		Roles:  []string{user.RoleAdmin},
		Handler: func(c *gin.Context, tx *gorm.DB, in *listQ) (usersOut, error) {
			if in.Limit <= 0 || in.Limit > 100 {
				in.Limit = 20
			}
			q := tx.Model(&user.UserModel{})
			if in.WithDeleted {
				q = q.Unscoped()
			}
			if s := strings.TrimSpace(in.Q); s != "" {
				like := "%" + strings.ToLower(s) + "%"
				q = q.Where("LOWER(email) LIKE ? OR LOWER(name) LIKE ?", like, like)
			}
			var total int64
			if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
				return usersOut{}, ez.Internal("count users failed", err)
			}
			var us []user.UserModel
			if err := q.Order("created_at DESC").Limit(in.Limit).Offset(max(in.Offset, 0)).Find(&us).Error; err != nil {
				return usersOut{}, ez.Internal("list users failed", err)
			}
			out := usersOut{Total: total, Items: make([]userRow, 0, len(us))}
			for _, u := range us {
				out.Items = append(out.Items, userRow{
					ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role,
					ConfirmedAt: u.ConfirmedAt, CreatedAt: u.CreatedAt,
				})
			}
			return out, nil
		},
	})

	// --- POST /admin/v1/users/:id/ban  封禁（软删） ---
	ez.RegisterAction(ezAdmin, d.DB, ez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/users/:id/ban",
		Binder: ez.BindNone,
		Auth:   true,
		Roles:  []string{user.RoleAdmin},
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			res := tx.Where("id = ?", id).Delete(&user.UserModel{})
			if res.Error != nil {
				return nil, ez.Internal("ban user failed", res.Error)
			}
			if res.RowsAffected == 0 {
				return nil, ez.NotFound("user not found")
			}
			d.Log.Info("user banned", zap.String("user_id", id))
			return gin.H{"id": id}, nil
		},
	})

	// --- POST /admin/v1/users/:id/role  修改角色 ---
	type roleIn struct {
		Role string `json:"role" binding:"required,oneof=user admin"`
	}
	ez.RegisterAction(ezAdmin, d.DB, ez.Action[roleIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/users/:id/role",
		Binder: ez.BindJSON,
		Auth:   true,
		Roles:  []string{user.RoleAdmin},
		Handler: func(c *gin.Context, _ *gorm.DB, in *roleIn) (gin.H, error) {
			id := c.Param("id")
			err := d.Users.SetRole(c.Request.Context(), id, in.Role)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ez.NotFound("user not found")
			}
			if err != nil {
				return nil, ez.Internal("set role failed", err)
			}
			return gin.H{"id": id, "role": in.Role}, nil
		},
	})

	// --- GET /admin/v1/listings  全部 listing（含草稿） ---
	type listingsQ struct {
		Offset int    `form:"offset,default=0"`
		Limit  int    `form:"limit,default=20"`
		Owner  string `form:"owner"`
		Drafts *bool  `form:"drafts"`
	}
	type listingsOut struct {
		Total int64                  `json:"total"`
		Items []listing.ListingModel `json:"items"`
	}
	ez.RegisterAction(ezAdmin, d.DB, ez.Action[listingsQ, listingsOut]{
		Method: http.MethodGet,
		Path:   "/listings",
		Binder: ez.BindQuery,
		Auth:   true,
		Roles:  []string{user.RoleAdmin},
		Handler: func(c *gin.Context, tx *gorm.DB, in *listingsQ) (listingsOut, error) {
			if in.Limit <= 0 || in.Limit > 100 {
				in.Limit = 20
			}
			q := tx.Model(&listing.ListingModel{})
			if s := strings.TrimSpace(in.Owner); s != "" {
				q = q.Where("user_id = ?", user.NormalizeEmail(s))
			}
			if in.Drafts != nil {
				q = q.Where("is_draft = ?", *in.Drafts)
			}
			var total int64
			if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
				return listingsOut{}, ez.Internal("count listings failed", err)
			}
			items := make([]listing.ListingModel, 0, in.Limit)
			if err := q.Order("created_at DESC, id").Limit(in.Limit).Offset(max(in.Offset, 0)).Find(&items).Error; err != nil {
				return listingsOut{}, ez.Internal("list listings failed", err)
			}
			return listingsOut{Total: total, Items: items}, nil
		},
	})

	// --- DELETE /admin/v1/listings/:id  下架 ---
	ez.RegisterAction(ezAdmin, d.DB, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/listings/:id",
		Binder: ez.BindNone,
		Auth:   true,
		Roles:  []string{user.RoleAdmin},
		UseTx:  true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			res := tx.Where("id = ?", id).Delete(&listing.ListingModel{})
			if res.Error != nil {
				return nil, ez.Internal("delete listing failed", res.Error)
			}
			if res.RowsAffected == 0 {
				return nil, ez.NotFound("listing not found")
			}
			if d.Related != nil {
				if err := d.Related.Invalidate(c.Request.Context(), id); err != nil {
					d.Log.Warn("invalidate related failed", zap.String("listing_id", id), zap.Error(err))
				}
			}
			d.Log.Info("listing removed by admin", zap.String("listing_id", id))
			return gin.H{"id": id}, nil
		},
	})
}
