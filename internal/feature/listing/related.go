package listing

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode"

	"go-gin-marketplace/internal/core/cache"
	"go-gin-marketplace/internal/domain"
)

type CandidateSource interface {
	Candidates(ctx context.Context, category, excludeID string, excludeSold bool, limit int) ([]domain.Listing, error)
}

// 候选池放大倍数，排序后截断
const candidatePoolFactor = 6

type Related struct {
	src   CandidateSource
	cache *cache.Cache // 可为 nil
	limit int
	ttl   time.Duration
}

func NewRelated(src CandidateSource, c *cache.Cache, limit int, ttl time.Duration) *Related {
	if limit <= 0 {
		limit = 4
	}
	return &Related{src: src, cache: c, limit: limit, ttl: ttl}
}

func relatedKey(id string) string { return "related:" + id }

// For 同分类、非草稿、未售出的推荐
func (r *Related) For(ctx context.Context, l *domain.Listing) ([]domain.Listing, error) {
	return cache.GetOrLoadJSON(r.cache, ctx, relatedKey(l.ID), r.ttl, func(ctx context.Context) ([]domain.Listing, error) {
		pool, err := r.src.Candidates(ctx, l.Category, l.ID, true, r.limit*candidatePoolFactor)
		if err != nil {
			return nil, err
		}
		return Rank(l.Title, pool, r.limit), nil
	})
}

func (r *Related) Invalidate(ctx context.Context, id string) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Delete(ctx, relatedKey(id))
}

// Rank 按标题共同词数降序，其次按发布时间新到旧，最多 limit 条
func Rank(title string, pool []domain.Listing, limit int) []domain.Listing {
	words := titleWords(title)
	type scored struct {
		l     domain.Listing
		score int
	}
	ss := make([]scored, 0, len(pool))
	for _, c := range pool {
		n := 0
		for w := range titleWords(c.Title) {
			if _, ok := words[w]; ok {
				n++
			}
		}
		ss = append(ss, scored{l: c, score: n})
	}
	sort.SliceStable(ss, func(i, j int) bool {
		if ss[i].score != ss[j].score {
			return ss[i].score > ss[j].score
		}
		return ss[i].l.CreatedAt.After(ss[j].l.CreatedAt)
	})
	if len(ss) > limit {
		ss = ss[:limit]
	}
	out := make([]domain.Listing, 0, len(ss))
	for _, s := range ss {
		out = append(out, s.l)
	}
	return out
}

func titleWords(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(w) > 1 {
			out[w] = struct{}{}
		}
	}
	return out
}
