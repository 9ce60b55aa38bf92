package router

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-gin-marketplace/internal/domain"
	"go-gin-marketplace/internal/feature/listing"
	"go-gin-marketplace/internal/feature/user"
	"go-gin-marketplace/internal/transport/http/ez"
	mdw "go-gin-marketplace/internal/transport/http/middleware"
	resp "go-gin-marketplace/internal/transport/http/response"
)

// authAErr 身份错误 -> 信封错误；原始错误只进日志
func authAErr(err error) error {
	if errors.Is(err, user.ErrSubmitPending) {
		return ez.Conflict("request already in progress")
	}
	k := user.KindOf(err)
	switch k {
	case user.KindInvalidInput, user.KindWeakPassword, user.KindInvalidToken:
		return ez.BadRequest(k.Message())
	case user.KindInvalidCredentials, user.KindEmailNotConfirmed:
		return ez.Unauthorized(k.Message())
	case user.KindEmailTaken:
		return ez.Conflict(k.Message())
	default:
		return ez.Internal(k.Message(), err)
	}
}

type meOut struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func toMe(u *domain.User) meOut {
	return meOut{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// ---------- 动作注册：/auth/* /me /listings ----------

func mountAPI(api *gin.RouterGroup, d Deps) {
	ezPublic := ez.New(api, d.Log)

	type credIn struct {
		Email    string `json:"email"    binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	type loginOut struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expiresIn"`
		User      meOut  `json:"user"`
	}
	ez.RegisterAction(ezPublic, d.DB, ez.Action[credIn, loginOut]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, _ *gorm.DB, in *credIn) (loginOut, error) {
			out, err := d.Guards.Submit(c.Request.Context(), user.ModeSignIn, in.Email, in.Password)
			if err != nil {
				mdw.ObserveAuth("signin", user.KindOf(err).String())
				return loginOut{}, authAErr(err)
			}
			tok, err := d.JWT.Issue(user.SessionIdentity(out.User))
			if err != nil {
				return loginOut{}, ez.Internal("issue token failed", err)
			}
			mdw.ObserveAuth("signin", "ok")
			return loginOut{
				Token:     tok,
				ExpiresIn: int64(d.JWT.TTL / time.Second),
				User:      toMe(out.User),
			}, nil
		},
	})

	type signupOut struct {
		Message string `json:"message"`
	}
	ez.RegisterAction(ezPublic, d.DB, ez.Action[credIn, signupOut]{
		Method: http.MethodPost,
		Path:   "/auth/signup",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, _ *gorm.DB, in *credIn) (signupOut, error) {
			out, err := d.Guards.Submit(c.Request.Context(), user.ModeSignUp, in.Email, in.Password)
			if err != nil {
				mdw.ObserveAuth("signup", user.KindOf(err).String())
				return signupOut{}, authAErr(err)
			}
			mdw.ObserveAuth("signup", "ok")
			return signupOut{Message: out.Message}, nil
		},
	})

	type browseIn struct {
		Q        string   `form:"q"`
		Category string   `form:"category"`
		MinPrice *float64 `form:"min_price"`
		MaxPrice *float64 `form:"max_price"`
		Page     int      `form:"page,default=1"`
		Size     int      `form:"size,default=20"`
	}
	type browseOut struct {
		List  []domain.Listing `json:"list"`
		Total int64            `json:"total"`
		Page  int              `json:"page"`
		Size  int              `json:"size"`
	}
	ez.RegisterAction(ezPublic, d.DB, ez.Action[browseIn, browseOut]{
		Method: http.MethodGet,
		Path:   "/listings",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, _ *gorm.DB, in *browseIn) (browseOut, error) {
			if in.Size <= 0 || in.Size > 100 {
				in.Size = 20
			}
			var offset int
			in.Page, offset = domain.PageOffset(in.Page, in.Size)
			items, total, err := d.Listings.Browse(c.Request.Context(), domain.ListingFilter{
				Q:        strings.TrimSpace(in.Q),
				Category: strings.TrimSpace(in.Category),
				MinPrice: in.MinPrice,
				MaxPrice: in.MaxPrice,
				Offset:   offset,
				Limit:    in.Size,
			})
			if err != nil {
				return browseOut{}, ez.Internal(listing.FetchFailedMessage, err)
			}
			if items == nil {
				items = []domain.Listing{}
			}
			return browseOut{List: items, Total: total, Page: in.Page, Size: in.Size}, nil
		},
	})

	type detailOut struct {
		Variant    string           `json:"variant"`
		Listing    *domain.Listing  `json:"listing"`
		IsOwner    bool             `json:"isOwner"`
		OwnerName  string           `json:"ownerName"`
		OwnerCount int64            `json:"ownerCount"`
		Related    []domain.Listing `json:"related"`
	}
	ez.RegisterAction(ezPublic, d.DB, ez.Action[struct{}, detailOut]{
		Method: http.MethodGet,
		Path:   "/listings/:id",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (detailOut, error) {
			ctx := c.Request.Context()
			page, err := d.Loader.Load(ctx, c.Param("id"), mdw.IdentityOf(c))
			if err != nil {
				return detailOut{}, &ez.AErr{Code: resp.CodeTimeout, Msg: listing.FetchFailedMessage, Err: err}
			}
			if page.State == listing.StateError {
				return detailOut{}, ez.Internal(page.Err.Message(), page.Err)
			}
			v := page.View
			if v.Variant == listing.VariantNotFound {
				return detailOut{}, ez.NotFound("listing not found")
			}
			out := detailOut{
				Variant:    v.Variant.String(),
				Listing:    v.Listing,
				IsOwner:    v.IsOwner,
				OwnerName:  v.OwnerName(),
				OwnerCount: v.OwnerCount,
				Related:    []domain.Listing{},
			}
			if v.ShowRelated && d.Related != nil {
				rel, err := d.Related.For(ctx, v.Listing)
				if err != nil {
					d.Log.Warn("related listings failed", zap.String("listing_id", v.Listing.ID), zap.Error(err))
				} else {
					out.Related = rel
				}
			}
			return out, nil
		},
	})

	// 鉴权分组（Bearer）
	authed := api.Group("", mdw.AuthJWT(d.JWT, d.Users, ""))
	ezAuth := ez.New(authed, d.Log)

	ez.RegisterAction(ezAuth, d.DB, ez.Action[struct{}, meOut]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (meOut, error) {
			u, err := d.Users.FindByID(c.Request.Context(), c.GetString(mdw.KeyUserID))
			if err != nil {
				return meOut{}, ez.Internal("load user failed", err)
			}
			if u == nil {
				return meOut{}, ez.NotFound("user not found")
			}
			return toMe(u), nil
		},
	})

	mountMyListings(authed, d)
}

// mountMyListings 当前用户的 listing CRUD；归属键为邮箱
func mountMyListings(g *gin.RouterGroup, d Deps) {
	ez.Crud(ez.CrudConfig[listing.ListingModel]{
		DB:    d.DB,
		Group: g,
		Path:  "/my/listings",
		New:   func() *listing.ListingModel { return &listing.ListingModel{} },
		Log:   d.Log,
		ID:    func(m *listing.ListingModel) *string { return &m.ID },
		Owner: func(m *listing.ListingModel) *string { return &m.UserID },
		OwnerKey: func(c *gin.Context) string {
			return mdw.IdentityOf(c).OwnerKey()
		},
		UpdateColumns: []string{
			"title", "price", "location", "location_lat", "location_lng",
			"category", "images", "condition", "description", "is_draft", "is_sold",
		},
		OrderBy: "created_at DESC, id",
		Hooks: ez.CrudHooks[listing.ListingModel]{
			BeforeCreate: func(c *gin.Context, m *listing.ListingModel) error {
				if err := validateListing(m); err != nil {
					return err
				}
				m.CreatedAt = time.Time{}
				if u, err := d.Users.FindByID(c.Request.Context(), mdw.IdentityOf(c).UserID); err == nil && u != nil {
					m.UserName = u.Name
				}
				return nil
			},
			BeforeUpdate: func(_ *gin.Context, m *listing.ListingModel) error {
				return validateListing(m)
			},
			AfterWrite: func(c *gin.Context, id string) {
				if d.Related == nil {
					return
				}
				if err := d.Related.Invalidate(c.Request.Context(), id); err != nil {
					d.Log.Warn("invalidate related failed", zap.String("listing_id", id), zap.Error(err))
				}
			},
		},
	})
}

var (
	errTitleRequired = errors.New("title is required")
	errNegativePrice = errors.New("price must not be negative")
)

func validateListing(m *listing.ListingModel) error {
	m.Title = strings.TrimSpace(m.Title)
	if m.Title == "" {
		return errTitleRequired
	}
	if m.Price < 0 {
		return errNegativePrice
	}
	if m.Images == nil {
		m.Images = []string{}
	}
	return nil
}
