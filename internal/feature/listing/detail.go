package listing

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"go-gin-marketplace/internal/core/auth"
	"go-gin-marketplace/internal/domain"
)

// Source 详情页需要的两次读取；FindByID 未找到返回 (nil, nil)
type Source interface {
	FindByID(ctx context.Context, id string) (*domain.Listing, error)
	CountByOwner(ctx context.Context, ownerKey string) (int64, error)
}

// BatchSource 支持一次取回 listing 与同 owner 数量的数据源
type BatchSource interface {
	FindWithOwnerCount(ctx context.Context, id string) (*domain.Listing, int64, error)
}

type State int

const (
	StateLoading State = iota
	StateError
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateError:
		return "error"
	case StateLoaded:
		return "loaded"
	default:
		return "loading"
	}
}

type Variant int

const (
	VariantNotFound Variant = iota
	VariantOwner
	VariantPublic
)

func (v Variant) String() string {
	switch v {
	case VariantOwner:
		return "owner"
	case VariantPublic:
		return "public"
	default:
		return "not_found"
	}
}

type FetchKind int

const (
	FetchUnavailable FetchKind = iota + 1
)

const (
	FetchFailedMessage = "Failed to load listing"
	BrowsePath         = "/browse"
)

// FetchError 数据读取失败；Message 只给安全文案，原始错误仅用于日志
type FetchError struct {
	Kind FetchKind
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return "listing fetch: " + e.Err.Error()
	}
	return "listing fetch failed"
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Message() string { return FetchFailedMessage }

// View 渲染选择结果
type View struct {
	Variant     Variant
	Listing     *domain.Listing
	IsOwner     bool
	OwnerCount  int64 // 同 owner 的 listing 数，含自身
	ShowRelated bool
}

// OwnerName 公开页展示的卖家名
func (v View) OwnerName() string {
	if v.Listing == nil || v.Listing.UserName == "" {
		return "Unknown"
	}
	return v.Listing.UserName
}

// Resolve 纯函数：由读取结果与当前身份决定渲染哪一种视图。
// 草稿对非 owner 与真正不存在的 listing 返回同一个 NotFound 视图。
func Resolve(l *domain.Listing, ownerCount int64, viewer auth.Identity) View {
	if l == nil {
		return View{Variant: VariantNotFound}
	}
	isOwner := l.OwnedBy(viewer.OwnerKey())
	if l.IsDraft && !isOwner {
		return View{Variant: VariantNotFound}
	}
	v := View{
		Listing:     l,
		IsOwner:     isOwner,
		OwnerCount:  ownerCount,
		ShowRelated: true,
	}
	if isOwner {
		v.Variant = VariantOwner
	} else {
		v.Variant = VariantPublic
	}
	return v
}

type Page struct {
	State State
	View  View
	Err   *FetchError
}

// BackPath 错误/404 页的返回入口
func (p Page) BackPath() string { return BrowsePath }

type Loader struct {
	src Source
	log *zap.Logger
}

func NewLoader(src Source, l *zap.Logger) *Loader {
	if l == nil {
		l = zap.NewNop()
	}
	return &Loader{src: src, log: l}
}

// Load 读取并鉴权。ctx 被取消（路由已切换/客户端断开）时不产出结果，返回 ctx.Err()。
func (ld *Loader) Load(ctx context.Context, id string, viewer auth.Identity) (Page, error) {
	l, count, err := ld.fetch(ctx, id)
	if cerr := ctx.Err(); cerr != nil {
		return Page{State: StateLoading}, cerr
	}
	if err != nil {
		ld.log.Warn("listing fetch failed", zap.String("listing_id", id), zap.Error(err))
		fe := &FetchError{Kind: FetchUnavailable, Err: err}
		return Page{State: StateError, Err: fe}, nil
	}
	return Page{State: StateLoaded, View: Resolve(l, count, viewer)}, nil
}

func (ld *Loader) fetch(ctx context.Context, id string) (*domain.Listing, int64, error) {
	if id == "" {
		return nil, 0, nil
	}
	if b, ok := ld.src.(BatchSource); ok {
		return b.FindWithOwnerCount(ctx, id)
	}
	l, err := ld.src.FindByID(ctx, id)
	if err != nil {
		return nil, 0, fmt.Errorf("find listing: %w", err)
	}
	if l == nil {
		return nil, 0, nil
	}
	// 两次读取之间也要检查取消
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	n, err := ld.src.CountByOwner(ctx, l.UserID)
	if err != nil {
		return nil, 0, fmt.Errorf("count owner listings: %w", err)
	}
	return l, n, nil
}

// IsAbandoned 区分取消与真实失败
func IsAbandoned(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
