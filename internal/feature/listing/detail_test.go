package listing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-gin-marketplace/internal/core/auth"
	"go-gin-marketplace/internal/domain"
)

// seqSource 只实现顺序读取，记录调用顺序
type seqSource struct {
	rows     map[string]*domain.Listing
	findErr  error
	countErr error
	calls    []string
	onFind   func() // 在 FindByID 返回前触发（模拟路由切换）
}

func (s *seqSource) FindByID(_ context.Context, id string) (*domain.Listing, error) {
	s.calls = append(s.calls, "find:"+id)
	if s.onFind != nil {
		s.onFind()
	}
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.rows[id], nil
}

func (s *seqSource) CountByOwner(_ context.Context, owner string) (int64, error) {
	s.calls = append(s.calls, "count:"+owner)
	if s.countErr != nil {
		return 0, s.countErr
	}
	var n int64
	for _, l := range s.rows {
		if l.UserID == owner {
			n++
		}
	}
	return n, nil
}

type batchSource struct {
	seqSource
	batched int
}

func (b *batchSource) FindWithOwnerCount(ctx context.Context, id string) (*domain.Listing, int64, error) {
	b.batched++
	l := b.rows[id]
	if l == nil {
		return nil, 0, nil
	}
	n, _ := b.CountByOwner(ctx, l.UserID)
	return l, n, nil
}

var (
	u1 = auth.Identity{UserID: "id-1", Email: "u1", Role: "user"}
	u2 = auth.Identity{UserID: "id-2", Email: "u2", Role: "user"}
)

func fixtures() map[string]*domain.Listing {
	return map[string]*domain.Listing{
		"L1": {ID: "L1", Title: "Desk", UserID: "u1", UserName: "Una"},
		"L2": {ID: "L2", Title: "Chair", UserID: "u1", IsDraft: true},
		"L4": {ID: "L4", Title: "Lamp", UserID: "u1"},
		"L5": {ID: "L5", Title: "Bike", UserID: "u2"},
	}
}

func TestResolve(t *testing.T) {
	pub := &domain.Listing{ID: "L1", UserID: "u1"}
	draft := &domain.Listing{ID: "L2", UserID: "u1", IsDraft: true}

	cases := []struct {
		name    string
		l       *domain.Listing
		viewer  auth.Identity
		variant Variant
		related bool
	}{
		{"public listing owner", pub, u1, VariantOwner, true},
		{"public listing stranger", pub, u2, VariantPublic, true},
		{"public listing anonymous", pub, auth.Anonymous, VariantPublic, true},
		{"draft owner", draft, u1, VariantOwner, true},
		{"draft stranger", draft, u2, VariantNotFound, false},
		{"draft anonymous", draft, auth.Anonymous, VariantNotFound, false},
		{"missing", nil, u1, VariantNotFound, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Resolve(tc.l, 3, tc.viewer)
			assert.Equal(t, tc.variant, v.Variant)
			assert.Equal(t, tc.related, v.ShowRelated)
			if tc.variant == VariantNotFound {
				// 不存在与草稿隐藏完全同形
				assert.Equal(t, View{Variant: VariantNotFound}, v)
			}
		})
	}
}

func TestResolve_AnonymousNeverOwnsEmptyOwnerKey(t *testing.T) {
	l := &domain.Listing{ID: "x", UserID: "", IsDraft: true}
	assert.Equal(t, VariantNotFound, Resolve(l, 0, auth.Anonymous).Variant)
}

func TestView_OwnerName(t *testing.T) {
	assert.Equal(t, "Unknown", View{Listing: &domain.Listing{}}.OwnerName())
	assert.Equal(t, "Una", View{Listing: &domain.Listing{UserName: "Una"}}.OwnerName())
}

func TestLoader_ScenarioOwnerAndPublic(t *testing.T) {
	src := &seqSource{rows: fixtures()}
	ld := NewLoader(src, nil)

	page, err := ld.Load(context.Background(), "L1", u1)
	require.NoError(t, err)
	assert.Equal(t, StateLoaded, page.State)
	assert.Equal(t, VariantOwner, page.View.Variant)
	assert.True(t, page.View.ShowRelated)

	src.calls = nil
	page, err = ld.Load(context.Background(), "L1", u2)
	require.NoError(t, err)
	assert.Equal(t, VariantPublic, page.View.Variant)
	assert.Equal(t, int64(3), page.View.OwnerCount)
	assert.True(t, page.View.ShowRelated)
	// 顺序依赖：先取 listing，再按其 owner 计数
	assert.Equal(t, []string{"find:L1", "count:u1"}, src.calls)
}

func TestLoader_ScenarioDraftHidden(t *testing.T) {
	ld := NewLoader(&seqSource{rows: fixtures()}, nil)
	for _, viewer := range []auth.Identity{u2, auth.Anonymous} {
		page, err := ld.Load(context.Background(), "L2", viewer)
		require.NoError(t, err)
		assert.Equal(t, StateLoaded, page.State)
		assert.Equal(t, VariantNotFound, page.View.Variant)
		assert.False(t, page.View.ShowRelated)

		missing, err := ld.Load(context.Background(), "nope", viewer)
		require.NoError(t, err)
		assert.Equal(t, missing, page, "draft-hidden must look exactly like missing")
	}
}

func TestLoader_NonDraftAlwaysLoaded(t *testing.T) {
	ld := NewLoader(&seqSource{rows: fixtures()}, nil)
	for _, id := range []string{"L1", "L4", "L5"} {
		for _, viewer := range []auth.Identity{u1, u2, auth.Anonymous} {
			page, err := ld.Load(context.Background(), id, viewer)
			require.NoError(t, err)
			assert.NotEqual(t, VariantNotFound, page.View.Variant, "%s as %q", id, viewer.Email)
		}
	}
}

func TestLoader_ScenarioFetchError(t *testing.T) {
	boom := errors.New("connection reset by peer")

	t.Run("find fails", func(t *testing.T) {
		ld := NewLoader(&seqSource{rows: fixtures(), findErr: boom}, nil)
		page, err := ld.Load(context.Background(), "L3", u1)
		require.NoError(t, err)
		assert.Equal(t, StateError, page.State)
		require.NotNil(t, page.Err)
		assert.ErrorIs(t, page.Err, boom)
		assert.Equal(t, FetchFailedMessage, page.Err.Message())
		assert.NotContains(t, page.Err.Message(), "connection")
		assert.Equal(t, "/browse", page.BackPath())
	})

	t.Run("count fails", func(t *testing.T) {
		src := &seqSource{rows: fixtures(), countErr: boom}
		page, err := NewLoader(src, nil).Load(context.Background(), "L1", u1)
		require.NoError(t, err)
		assert.Equal(t, StateError, page.State)
		assert.ErrorIs(t, page.Err, boom)
	})
}

func TestLoader_CancelledBeforeApply(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &seqSource{rows: fixtures(), onFind: cancel}
	page, err := NewLoader(src, nil).Load(ctx, "L1", u1)

	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, IsAbandoned(err))
	assert.Equal(t, StateLoading, page.State)
	// 取消后不再发起计数
	assert.Equal(t, []string{"find:L1"}, src.calls)
}

func TestLoader_PrefersBatchSource(t *testing.T) {
	src := &batchSource{seqSource: seqSource{rows: fixtures()}}
	page, err := NewLoader(src, nil).Load(context.Background(), "L1", u2)
	require.NoError(t, err)
	assert.Equal(t, 1, src.batched)
	assert.Equal(t, VariantPublic, page.View.Variant)
	assert.Equal(t, int64(3), page.View.OwnerCount)
	assert.NotContains(t, src.calls, "find:L1")
}

func TestStateAndVariantStrings(t *testing.T) {
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "error", StateError.String())
	assert.Equal(t, "loaded", StateLoaded.String())
	assert.Equal(t, "owner", VariantOwner.String())
	assert.Equal(t, "public", VariantPublic.String())
	assert.Equal(t, "not_found", VariantNotFound.String())
}
