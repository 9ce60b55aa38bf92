package ez

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-gin-marketplace/internal/domain"
	mdw "go-gin-marketplace/internal/transport/http/middleware"
	resp "go-gin-marketplace/internal/transport/http/response"
	"go-gin-marketplace/pkg/utils"
)

// CrudHooks 可选钩子
type CrudHooks[T any] struct {
	BeforeCreate func(c *gin.Context, m *T) error
	BeforeUpdate func(c *gin.Context, m *T) error
	ScopeList    func(c *gin.Context, q *gorm.DB) *gorm.DB // 自定义筛选/排序
	AfterGet     func(c *gin.Context, m *T)
	AfterWrite   func(c *gin.Context, id string) // 写入/删除成功后（如失效缓存）
}

// CrudConfig 按归属隔离的 CRUD：所有读写都以 (id, owner) 为条件，
// 不属于当前用户的记录一律按不存在处理
type CrudConfig[T any] struct {
	DB    *gorm.DB
	Group *gin.RouterGroup // 已鉴权分组
	Path  string
	New   func() *T
	Log   *zap.Logger

	Hooks CrudHooks[T]

	AllowCreate bool
	AllowList   bool
	AllowGet    bool
	AllowUpdate bool
	AllowDelete bool

	// 字段访问器：返回可写指针
	ID    func(m *T) *string
	Owner func(m *T) *string

	IDColumn    string // 默认 "id"
	OwnerColumn string // 默认 "user_id"

	// OwnerKey 从请求取归属键；默认 userId
	OwnerKey func(c *gin.Context) string

	// UpdateColumns 非空时 Select 这些列更新（允许写零值，如 false）
	UpdateColumns []string

	IDGen   func() string // 默认 utils.NewID
	OrderBy string        // 为空则按 id DESC
	MaxSize int           // 默认 100
}

func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

func (cfg *CrudConfig[T]) defaults() {
	if !cfg.AllowCreate && !cfg.AllowGet && !cfg.AllowList && !cfg.AllowUpdate && !cfg.AllowDelete {
		cfg.AllowCreate, cfg.AllowList, cfg.AllowGet, cfg.AllowUpdate, cfg.AllowDelete = true, true, true, true, true
	}
	if cfg.IDGen == nil {
		cfg.IDGen = utils.NewID
	}
	if cfg.IDColumn == "" {
		cfg.IDColumn = "id"
	}
	if cfg.OwnerColumn == "" {
		cfg.OwnerColumn = "user_id"
	}
	if cfg.OwnerKey == nil {
		cfg.OwnerKey = func(c *gin.Context) string { return c.GetString(mdw.KeyUserID) }
	}
	if cfg.OrderBy == "" {
		cfg.OrderBy = cfg.IDColumn + " DESC"
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 100
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
}

func (cfg *CrudConfig[T]) scoped(c *gin.Context, owner, id string) *gorm.DB {
	return cfg.DB.WithContext(c.Request.Context()).Model(cfg.New()).
		Where(cfg.IDColumn+" = ? AND "+cfg.OwnerColumn+" = ?", id, owner)
}

func (cfg *CrudConfig[T]) dbFail(c *gin.Context, err error) {
	cfg.Log.Error("crud db error", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusOK, resp.Error(resp.CodeServerError, ""))
}

func (cfg *CrudConfig[T]) afterWrite(c *gin.Context, id string) {
	if cfg.Hooks.AfterWrite != nil {
		cfg.Hooks.AfterWrite(c, id)
	}
}

// withOwner 统一鉴权：拿不到归属键直接 401
func (cfg *CrudConfig[T]) withOwner(h func(c *gin.Context, owner string)) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := cfg.OwnerKey(c)
		if owner == "" {
			c.JSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "unauthorized"))
			return
		}
		h(c, owner)
	}
}

// Crud 注册 List/Get/Create/Update/Delete
func Crud[T any](cfg CrudConfig[T]) {
	cfg.defaults()

	if cfg.AllowCreate {
		cfg.Group.POST(cfg.Path, cfg.withOwner(func(c *gin.Context, owner string) {
			m := cfg.New()
			if err := c.ShouldBindJSON(m); err != nil {
				c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
				return
			}
			if id := cfg.ID(m); strings.TrimSpace(*id) == "" {
				*id = cfg.IDGen()
			}
			*cfg.Owner(m) = owner
			if cfg.Hooks.BeforeCreate != nil {
				if err := cfg.Hooks.BeforeCreate(c, m); err != nil {
					c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
					return
				}
			}
			if err := cfg.DB.WithContext(c.Request.Context()).Create(m).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					c.JSON(http.StatusOK, resp.Error(resp.CodeConflict, "already exists"))
					return
				}
				cfg.dbFail(c, err)
				return
			}
			cfg.afterWrite(c, *cfg.ID(m))
			if cfg.Hooks.AfterGet != nil {
				cfg.Hooks.AfterGet(c, m)
			}
			c.JSON(http.StatusOK, resp.OK(m))
		}))
	}

	if cfg.AllowList {
		cfg.Group.GET(cfg.Path, cfg.withOwner(func(c *gin.Context, owner string) {
			size := atoiDefault(c.Query("size"), 20)
			if size > cfg.MaxSize {
				size = 20
			}
			page, offset := domain.PageOffset(atoiDefault(c.Query("page"), 1), size)
			q := cfg.DB.WithContext(c.Request.Context()).Model(cfg.New()).Where(cfg.OwnerColumn+" = ?", owner)
			if cfg.Hooks.ScopeList != nil {
				q = cfg.Hooks.ScopeList(c, q)
			}
			var total int64
			if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
				cfg.dbFail(c, err)
				return
			}
			items := make([]T, 0, size)
			if err := q.Order(cfg.OrderBy).Limit(size).Offset(offset).Find(&items).Error; err != nil {
				cfg.dbFail(c, err)
				return
			}
			if cfg.Hooks.AfterGet != nil {
				for i := range items {
					cfg.Hooks.AfterGet(c, &items[i])
				}
			}
			c.JSON(http.StatusOK, resp.OK(gin.H{
				"list": items, "total": total, "page": page, "size": size,
			}))
		}))
	}

	if cfg.AllowGet {
		cfg.Group.GET(cfg.Path+"/:id", cfg.withOwner(func(c *gin.Context, owner string) {
			m := cfg.New()
			err := cfg.scoped(c, owner, c.Param("id")).Take(m).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusOK, resp.Error(resp.CodeNotFound, "not found"))
				return
			}
			if err != nil {
				cfg.dbFail(c, err)
				return
			}
			if cfg.Hooks.AfterGet != nil {
				cfg.Hooks.AfterGet(c, m)
			}
			c.JSON(http.StatusOK, resp.OK(m))
		}))
	}

	if cfg.AllowUpdate {
		cfg.Group.PUT(cfg.Path+"/:id", cfg.withOwner(func(c *gin.Context, owner string) {
			id := c.Param("id")
			in := cfg.New()
			if err := c.ShouldBindJSON(in); err != nil {
				c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
				return
			}
			// 强制保持 ID/Owner
			*cfg.ID(in) = id
			*cfg.Owner(in) = owner
			if cfg.Hooks.BeforeUpdate != nil {
				if err := cfg.Hooks.BeforeUpdate(c, in); err != nil {
					c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
					return
				}
			}
			q := cfg.scoped(c, owner, id)
			if len(cfg.UpdateColumns) > 0 {
				q = q.Select(cfg.UpdateColumns)
			}
			res := q.Updates(in)
			if res.Error != nil {
				cfg.dbFail(c, res.Error)
				return
			}
			if res.RowsAffected == 0 {
				// 值未变化也会是 0，再确认一次归属
				var n int64
				if err := cfg.scoped(c, owner, id).Count(&n).Error; err != nil {
					cfg.dbFail(c, err)
					return
				}
				if n == 0 {
					c.JSON(http.StatusOK, resp.Error(resp.CodeNotFound, "not found"))
					return
				}
			}
			cfg.afterWrite(c, id)
			c.JSON(http.StatusOK, resp.OK(gin.H{"id": id}))
		}))
	}

	if cfg.AllowDelete {
		cfg.Group.DELETE(cfg.Path+"/:id", cfg.withOwner(func(c *gin.Context, owner string) {
			id := c.Param("id")
			res := cfg.DB.WithContext(c.Request.Context()).
				Where(cfg.IDColumn+" = ? AND "+cfg.OwnerColumn+" = ?", id, owner).
				Delete(cfg.New())
			if res.Error != nil {
				cfg.dbFail(c, res.Error)
				return
			}
			if res.RowsAffected == 0 {
				c.JSON(http.StatusOK, resp.Error(resp.CodeNotFound, "not found"))
				return
			}
			cfg.afterWrite(c, id)
			c.JSON(http.StatusOK, resp.OK(gin.H{"id": id}))
		}))
	}
}
