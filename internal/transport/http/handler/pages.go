package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-marketplace/internal/domain"
	"go-gin-marketplace/internal/feature/listing"
	mdw "go-gin-marketplace/internal/transport/http/middleware"
	"go-gin-marketplace/internal/transport/http/view"
)

// Pages 浏览、详情、个人页与 owner 管理动作
type Pages struct {
	Listings domain.ListingRepository
	Loader   *listing.Loader
	Related  *listing.Related
	Log      *zap.Logger
	PageSize int
}

func base(c *gin.Context, title string) view.Base {
	return view.Base{Title: title, Viewer: mdw.IdentityOf(c)}
}

func (h *Pages) notFound(c *gin.Context) {
	mdw.ObserveListingView(listing.VariantNotFound.String())
	c.HTML(http.StatusNotFound, view.PageNotFound, view.NotFoundPage{
		Base:     base(c, "Not found"),
		BackPath: listing.BrowsePath,
	})
}

func (h *Pages) failed(c *gin.Context, status int, err error) {
	h.Log.Warn("page failed", zap.String("path", c.Request.URL.Path), zap.String("rid", c.GetString(mdw.KeyRequestID)), zap.Error(err))
	c.HTML(status, view.PageError, view.ErrorPage{
		Base:     base(c, "Error"),
		Message:  listing.FetchFailedMessage,
		BackPath: listing.BrowsePath,
	})
}

// interrupted 请求已放弃时收尾：超时渲染 504 错误页，客户端断开则不渲染
func (h *Pages) interrupted(c *gin.Context, err error) bool {
	if !listing.IsAbandoned(err) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		h.failed(c, http.StatusGatewayTimeout, err)
		return true
	}
	h.Log.Debug("listing load abandoned", zap.String("listing_id", c.Param("id")), zap.Error(err))
	c.Abort()
	return true
}

func (h *Pages) Home(c *gin.Context) { c.Redirect(http.StatusFound, listing.BrowsePath) }

// Browse 公开 listing，按时间倒序
func (h *Pages) Browse(c *gin.Context) {
	q := view.BrowseQuery{
		Q:        strings.TrimSpace(c.Query("q")),
		Category: strings.TrimSpace(c.Query("category")),
		MinPrice: c.Query("min_price"),
		MaxPrice: c.Query("max_price"),
	}
	size := atoiDefault(c.Query("size"), h.pageSize())
	if size > 100 {
		size = h.pageSize()
	}
	page, offset := domain.PageOffset(atoiDefault(c.Query("page"), 1), size)
	f := domain.ListingFilter{
		Q:        q.Q,
		Category: q.Category,
		MinPrice: parsePrice(q.MinPrice),
		MaxPrice: parsePrice(q.MaxPrice),
		Offset:   offset,
		Limit:    size,
	}
	items, total, err := h.Listings.Browse(c.Request.Context(), f)
	if err != nil {
		h.failed(c, http.StatusBadGateway, err)
		return
	}

	data := view.BrowsePage{Base: base(c, "Browse"), Query: q, Items: items, Total: total, Page: page}
	if page > 1 {
		data.PrevURL = browseURL(q, page-1, size)
	}
	if page < domain.MaxPage && int64(offset+size) < total {
		data.NextURL = browseURL(q, page+1, size)
	}
	c.HTML(http.StatusOK, view.PageBrowse, data)
}

// Listing 详情页：owner / public / not found / error 四选一
func (h *Pages) Listing(c *gin.Context) {
	ctx := c.Request.Context()
	viewer := mdw.IdentityOf(c)
	page, err := h.Loader.Load(ctx, c.Param("id"), viewer)
	if err != nil {
		if !h.interrupted(c, err) {
			h.failed(c, http.StatusBadGateway, err)
		}
		return
	}

	switch {
	case page.State == listing.StateError:
		mdw.ObserveListingView("error")
		c.HTML(http.StatusBadGateway, view.PageError, view.ErrorPage{
			Base:     base(c, "Error"),
			Message:  page.Err.Message(),
			BackPath: page.BackPath(),
		})
	case page.View.Variant == listing.VariantNotFound:
		h.notFound(c)
	default:
		data := view.ListingPage{Base: base(c, page.View.Listing.Title), View: page.View}
		if page.View.ShowRelated && h.Related != nil {
			rel, err := h.Related.For(ctx, page.View.Listing)
			if err != nil {
				// 推荐失败不影响详情
				h.Log.Warn("related listings failed", zap.String("listing_id", page.View.Listing.ID), zap.Error(err))
			}
			data.Related = rel
		}
		if h.interrupted(c, ctx.Err()) {
			return
		}
		mdw.ObserveListingView(page.View.Variant.String())
		c.HTML(http.StatusOK, view.PageListing, data)
	}
}

// Settings 当前用户的 listing（含草稿）
func (h *Pages) Settings(c *gin.Context) {
	viewer := mdw.IdentityOf(c)
	items, err := h.Listings.ListByOwner(c.Request.Context(), viewer.OwnerKey())
	if err != nil {
		h.failed(c, http.StatusBadGateway, err)
		return
	}
	c.HTML(http.StatusOK, view.PageSettings, view.SettingsPage{Base: base(c, "Settings"), Listings: items})
}

// Manage owner 管理动作；按 (id, owner) 更新，匹配不到一律按不存在处理
func (h *Pages) Manage(c *gin.Context) {
	ctx := c.Request.Context()
	id, owner := c.Param("id"), mdw.IdentityOf(c).OwnerKey()
	yes, no := true, false

	var (
		ok  bool
		err error
	)
	switch c.Param("action") {
	case "sold":
		ok, err = h.Listings.SetFlags(ctx, id, owner, domain.FlagUpdate{IsSold: &yes})
	case "unsold":
		ok, err = h.Listings.SetFlags(ctx, id, owner, domain.FlagUpdate{IsSold: &no})
	case "publish":
		ok, err = h.Listings.SetFlags(ctx, id, owner, domain.FlagUpdate{IsDraft: &no})
	case "delete":
		ok, err = h.Listings.Delete(ctx, id, owner)
	default:
		h.notFound(c)
		return
	}
	if err != nil {
		h.failed(c, http.StatusBadGateway, err)
		return
	}
	if !ok {
		h.notFound(c)
		return
	}
	if h.Related != nil {
		if err := h.Related.Invalidate(ctx, id); err != nil {
			h.Log.Warn("invalidate related failed", zap.String("listing_id", id), zap.Error(err))
		}
	}
	h.Log.Info("listing updated", zap.String("listing_id", id), zap.String("action", c.Param("action")))
	if c.Param("action") == "delete" {
		c.Redirect(http.StatusSeeOther, "/settings")
		return
	}
	c.Redirect(http.StatusSeeOther, "/listing/"+url.PathEscape(id))
}

func (h *Pages) pageSize() int {
	if h.PageSize <= 0 || h.PageSize > 100 {
		return 20
	}
	return h.PageSize
}

func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

func parsePrice(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

func browseURL(q view.BrowseQuery, page, size int) string {
	v := url.Values{}
	for k, s := range map[string]string{"q": q.Q, "category": q.Category, "min_price": q.MinPrice, "max_price": q.MaxPrice} {
		if s != "" {
			v.Set(k, s)
		}
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("size", strconv.Itoa(size))
	return listing.BrowsePath + "?" + v.Encode()
}
