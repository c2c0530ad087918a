package blogapi

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sizes of the statistics lists.
const (
	RecentBlogsCount = 5
	OldestBlogsCount = 3
)

// Cache keys.
const (
	statsCacheKey  = "stats"
	titlesCacheKey = "titles"
)

// Service executes read queries against a Store.
type Service struct {
	store    Store
	cache    Cache
	cacheTTL time.Duration
	log      *zap.Logger
}

// NewService creates a Service. cache may be nil to disable response
// caching; log may be nil.
func NewService(store Store, cache Cache, cacheTTL time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, cache: cache, cacheTTL: cacheTTL, log: log}
}

// List returns one page of the corpus in the requested order. A page past
// the end yields an empty list, not an error.
func (s *Service) List(ctx context.Context, q ListQuery) (BlogPage, error) {
	total, err := s.store.Count(ctx)
	if err != nil {
		return BlogPage{}, storeErr(OpCount, err)
	}
	blogs, err := s.store.List(ctx, q.SortBy, q.SortOrder, q.Offset(), q.Limit)
	if err != nil {
		return BlogPage{}, storeErr(OpList, err)
	}
	if blogs == nil {
		blogs = []Blog{}
	}
	pages := totalPages(total, q.Limit)
	return BlogPage{
		Blogs: blogs,
		Pagination: ListPagination{
			CurrentPage:  q.Page,
			TotalPages:   pages,
			TotalBlogs:   total,
			BlogsPerPage: q.Limit,
			HasNextPage:  q.Page < pages,
			HasPrevPage:  q.Page > 1,
		},
	}, nil
}

// Search returns one page of the blogs whose title or content contains
// the term, newest first.
func (s *Service) Search(ctx context.Context, q SearchQuery) (SearchPage, error) {
	total, err := s.store.CountMatching(ctx, q.Term)
	if err != nil {
		return SearchPage{}, storeErr(OpSearch, err)
	}
	blogs, err := s.store.Search(ctx, q.Term, q.Offset(), q.Limit)
	if err != nil {
		return SearchPage{}, storeErr(OpSearch, err)
	}
	if blogs == nil {
		blogs = []Blog{}
	}
	return SearchPage{
		Blogs: blogs,
		Pagination: SearchPagination{
			CurrentPage:  q.Page,
			TotalPages:   totalPages(total, q.Limit),
			TotalBlogs:   total,
			BlogsPerPage: q.Limit,
			SearchQuery:  q.Term,
		},
	}, nil
}

// Stats summarizes the corpus. The four store reads are independent and
// run concurrently.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return cached(ctx, s, statsCacheKey, s.loadStats)
}

func (s *Service) loadStats(ctx context.Context) (Stats, error) {
	var (
		total          int
		lengths        LengthStats
		recent, oldest []BlogSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.Count(gctx)
		total = n
		return storeErr(OpCount, err)
	})
	g.Go(func() error {
		ls, err := s.store.LengthStats(gctx)
		lengths = ls
		return storeErr(OpLengthStats, err)
	})
	g.Go(func() error {
		r, err := s.store.Summaries(gctx, SortByCreatedAt, SortDesc, RecentBlogsCount)
		recent = r
		return storeErr(OpSummaries, err)
	})
	g.Go(func() error {
		o, err := s.store.Summaries(gctx, SortByCreatedAt, SortAsc, OldestBlogsCount)
		oldest = o
		return storeErr(OpSummaries, err)
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	if recent == nil {
		recent = []BlogSummary{}
	}
	if oldest == nil {
		oldest = []BlogSummary{}
	}
	return Stats{
		TotalBlogs: total,
		ContentStats: ContentStats{
			AverageLength: int(math.Round(lengths.Average)),
			MinimumLength: lengths.Minimum,
			MaximumLength: lengths.Maximum,
		},
		RecentBlogs: recent,
		OldestBlogs: oldest,
	}, nil
}

// Titles returns every blog projected to title and creation time, sorted
// by title.
func (s *Service) Titles(ctx context.Context) ([]BlogSummary, error) {
	return cached(ctx, s, titlesCacheKey, func(ctx context.Context) ([]BlogSummary, error) {
		titles, err := s.store.Summaries(ctx, SortByTitle, SortAsc, 0)
		if err != nil {
			return nil, storeErr(OpTitles, err)
		}
		if titles == nil {
			titles = []BlogSummary{}
		}
		return titles, nil
	})
}

// Get returns the blog with the given id. A malformed id is a
// *ValidationError; a well-formed unknown id is ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (Blog, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Blog{}, &ValidationError{Message: "Invalid blog ID format"}
	}
	b, err := s.store.Get(ctx, parsed.String())
	if err != nil {
		return Blog{}, storeErr(OpGet, err)
	}
	return b, nil
}

// GetByTitle returns the blog with exactly this title.
func (s *Service) GetByTitle(ctx context.Context, title string) (Blog, error) {
	b, err := s.store.GetByTitle(ctx, title)
	if err != nil {
		return Blog{}, storeErr(OpGetByTitle, err)
	}
	return b, nil
}

// Ping checks store connectivity.
func (s *Service) Ping(ctx context.Context) error {
	return storeErr(OpPing, s.store.Ping(ctx))
}

// cached serves key from the response cache, falling back to load. Cache
// failures are logged and otherwise ignored.
func cached[T any](ctx context.Context, s *Service, key string, load func(context.Context) (T, error)) (T, error) {
	if s.cache != nil {
		b, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		case ok:
			var v T
			if err := json.Unmarshal(b, &v); err == nil {
				return v, nil
			}
			s.log.Warn("discarding undecodable cache entry", zap.String("key", key))
		}
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if s.cache != nil {
		b, err := json.Marshal(v)
		if err == nil {
			err = s.cache.Set(ctx, key, b, s.cacheTTL)
		}
		if err != nil {
			s.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return v, nil
}
