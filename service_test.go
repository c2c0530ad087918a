package blogapi

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corpus(n int) []Blog {
	blogs := make([]Blog, n)
	for i := range blogs {
		blogs[i] = Blog{
			Title:     fmt.Sprintf("Post %02d", i),
			Content:   fmt.Sprintf("body of post %d", i),
			CreatedAt: baseTime.Add(time.Duration(i) * time.Hour),
		}
	}
	return blogs
}

func TestServiceListPaging(t *testing.T) {
	svc := NewService(NewMemoryStore(corpus(25)...), nil, 0, nil)
	ctx := context.Background()

	for page := 1; page <= 4; page++ {
		res, err := svc.List(ctx, ParseListQuery(fmt.Sprint(page), "10", "", ""))
		require.NoError(t, err)

		assert.Equal(t, 25, res.Pagination.TotalBlogs)
		assert.Equal(t, 3, res.Pagination.TotalPages)
		assert.LessOrEqual(t, len(res.Blogs), 10)
		switch page {
		case 1, 2:
			assert.Len(t, res.Blogs, 10)
			assert.True(t, res.Pagination.HasNextPage)
		case 3:
			assert.Len(t, res.Blogs, 5)
			assert.False(t, res.Pagination.HasNextPage)
		case 4:
			assert.NotNil(t, res.Blogs)
			assert.Empty(t, res.Blogs)
			assert.False(t, res.Pagination.HasNextPage)
		}
		assert.Equal(t, page > 1, res.Pagination.HasPrevPage)
	}
}

func TestServiceListNewestFirstByDefault(t *testing.T) {
	svc := NewService(NewMemoryStore(corpus(3)...), nil, 0, nil)

	res, err := svc.List(context.Background(), ParseListQuery("", "", "bogus", ""))
	require.NoError(t, err)
	require.Len(t, res.Blogs, 3)
	assert.Equal(t, "Post 02", res.Blogs[0].Title)
	assert.Equal(t, "Post 00", res.Blogs[2].Title)
}

func TestServiceSearch(t *testing.T) {
	svc := NewService(NewMemoryStore(
		Blog{Title: "JavaScript Basics", Content: "intro", CreatedAt: baseTime},
		Blog{Title: "Python Guide", Content: "intro", CreatedAt: baseTime},
	), nil, 0, nil)

	q, err := ParseSearchQuery("java", "", "")
	require.NoError(t, err)
	res, err := svc.Search(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, res.Blogs, 1)
	assert.Equal(t, "JavaScript Basics", res.Blogs[0].Title)
	assert.Equal(t, SearchPagination{
		CurrentPage:  1,
		TotalPages:   1,
		TotalBlogs:   1,
		BlogsPerPage: 10,
		SearchQuery:  "java",
	}, res.Pagination)
}

func TestServiceStats(t *testing.T) {
	svc := NewService(NewMemoryStore(corpus(8)...), nil, 0, nil)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, stats.TotalBlogs)
	require.Len(t, stats.RecentBlogs, RecentBlogsCount)
	require.Len(t, stats.OldestBlogs, OldestBlogsCount)
	assert.Equal(t, "Post 07", stats.RecentBlogs[0].Title)
	assert.Equal(t, "Post 00", stats.OldestBlogs[0].Title)
	assert.Equal(t, len("body of post 0"), stats.ContentStats.MinimumLength)
}

func TestServiceStatsEmpty(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, 0, nil)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{
		RecentBlogs: []BlogSummary{},
		OldestBlogs: []BlogSummary{},
	}, stats)
}

func TestServiceGet(t *testing.T) {
	store := NewMemoryStore(corpus(2)...)
	svc := NewService(store, nil, 0, nil)
	ctx := context.Background()

	all, err := store.List(ctx, SortByTitle, SortAsc, 0, 0)
	require.NoError(t, err)

	got, err := svc.Get(ctx, all[1].ID)
	require.NoError(t, err)
	assert.Equal(t, all[1], got)

	_, err = svc.Get(ctx, "xyz")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Invalid blog ID format", ve.Message)

	_, err = svc.Get(ctx, "0190a8f2-7b4e-7c3a-9d2e-1f0a2b3c4d5e")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceWrapsStoreErrors(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(&failingStore{MemoryStore: NewMemoryStore(), err: boom}, nil, 0, nil)

	_, err := svc.List(context.Background(), ParseListQuery("", "", "", ""))
	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, OpCount, se.Op)
	assert.ErrorIs(t, err, boom)
}

func TestServiceCachesStatsAndTitles(t *testing.T) {
	store := NewMemoryStore(corpus(2)...)
	cache := NewMemoryCache()
	svc := NewService(store, cache, time.Minute, nil)
	ctx := context.Background()

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	titles, err := svc.Titles(ctx)
	require.NoError(t, err)
	require.Len(t, titles, 2)

	_, err = store.InsertBlogs(ctx, corpus(1))
	require.NoError(t, err)

	cachedStats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats.TotalBlogs, cachedStats.TotalBlogs)
	cachedTitles, err := svc.Titles(ctx)
	require.NoError(t, err)
	assert.Len(t, cachedTitles, 2)

	cache.Invalidate()
	fresh, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, fresh.TotalBlogs)
}

type brokenCache struct{ sets int }

func (c *brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("cache down")
}

func (c *brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	c.sets++
	return errors.New("cache down")
}

func TestServiceIgnoresCacheFailures(t *testing.T) {
	cache := &brokenCache{}
	svc := NewService(NewMemoryStore(corpus(3)...), cache, time.Minute, nil)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalBlogs)
	assert.Equal(t, 1, cache.sets)
}

func TestServiceDiscardsUndecodableCacheEntry(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, titlesCacheKey, []byte("{not json"), time.Minute))
	svc := NewService(NewMemoryStore(corpus(2)...), cache, time.Minute, nil)

	titles, err := svc.Titles(ctx)
	require.NoError(t, err)
	assert.Len(t, titles, 2)
}

// summariesFailing fails only the title projections used by Stats.
type summariesFailing struct {
	*MemoryStore
}

func (summariesFailing) Summaries(context.Context, SortField, SortDirection, int) ([]BlogSummary, error) {
	return nil, errors.New("no such column: created_at")
}

func TestServiceStatsSummariesFailure(t *testing.T) {
	svc := NewService(summariesFailing{NewMemoryStore(corpus(3)...)}, nil, 0, nil)

	_, err := svc.Stats(context.Background())
	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, OpSummaries, se.Op)
	assert.EqualError(t, se.Err, "no such column: created_at")
}
