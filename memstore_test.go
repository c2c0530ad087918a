package blogapi

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Both Store implementations must agree on ordering, matching and
// aggregation.
func TestStoresAgree(t *testing.T) {
	blogs := []Blog{
		{Title: "JavaScript Basics", Content: "Closures and 100% of callbacks.", CreatedAt: baseTime},
		{Title: "Python Guide", Content: "snake_case everywhere", CreatedAt: baseTime.Add(time.Hour)},
		{Title: "Go Concurrency", Content: "goroutines", CreatedAt: baseTime.Add(time.Hour)},
		{Title: "Alpha", Content: "x", CreatedAt: baseTime.Add(3 * time.Hour)},
		{Title: "ÉCLAIR recipe", Content: "Crème pâtissière", CreatedAt: baseTime.Add(4 * time.Hour)},
	}

	sqlite, cleanup := setupTestStore(t)
	defer cleanup()
	seed(t, sqlite, append([]Blog(nil), blogs...)...)

	all, err := sqlite.List(context.Background(), SortByCreatedAt, SortAsc, 0, 100)
	require.NoError(t, err)
	mem := NewMemoryStore(all...)

	stores := map[string]Store{"sqlite": sqlite, "memory": mem}
	ctx := context.Background()

	ids := func(bs []Blog) []string {
		out := make([]string, len(bs))
		for i, b := range bs {
			out[i] = b.ID
		}
		return out
	}

	results := map[string][][]string{}
	for name, s := range stores {
		for _, field := range []SortField{SortByCreatedAt, SortByTitle, SortByID} {
			for _, dir := range []SortDirection{SortAsc, SortDesc} {
				page, err := s.List(ctx, field, dir, 1, 2)
				require.NoError(t, err)
				results[name] = append(results[name], ids(page))
			}
			past, err := s.List(ctx, field, SortAsc, math.MaxInt, 10)
			require.NoError(t, err)
			assert.Empty(t, past, "%s: offset past the end", name)
		}
		for _, term := range []string{"java", "0%", "e_c", "GO", "zz", "éclair", "CRÈME"} {
			found, err := s.Search(ctx, term, 0, 10)
			require.NoError(t, err)
			n, err := s.CountMatching(ctx, term)
			require.NoError(t, err)
			assert.Len(t, found, n, "%s: %q", name, term)
			results[name] = append(results[name], ids(found))
		}
	}
	assert.Equal(t, results["sqlite"], results["memory"])

	sqlStats, err := sqlite.LengthStats(ctx)
	require.NoError(t, err)
	memStats, err := mem.LengthStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, sqlStats, memStats)
}

func TestMemoryStoreAssignsIDs(t *testing.T) {
	s := NewMemoryStore(Blog{Title: "A"}, Blog{ID: "fixed", Title: "B"})

	a, err := s.GetByTitle(context.Background(), "A")
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)

	b, err := s.Get(context.Background(), "fixed")
	require.NoError(t, err)
	assert.Equal(t, "B", b.Title)
}

func TestMemoryStoreLengthStatsCountsCharacters(t *testing.T) {
	s := NewMemoryStore(Blog{Title: "A", Content: "héllo"}, Blog{Title: "B", Content: "日本"})

	ls, err := s.LengthStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, LengthStats{Average: 3.5, Minimum: 2, Maximum: 5}, ls)
}

func TestMemoryStoreListWindow(t *testing.T) {
	s := NewMemoryStore(corpus(5)...)
	ctx := context.Background()

	page, err := s.List(ctx, SortByTitle, SortAsc, 4, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Post 04", page[0].Title)

	page, err = s.List(ctx, SortByTitle, SortAsc, 5, 10)
	require.NoError(t, err)
	assert.NotNil(t, page)
	assert.Empty(t, page)
}

func TestWindow(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	tests := []struct {
		name          string
		offset, limit int
		want          []int
	}{
		{"first page", 0, 2, []int{1, 2}},
		{"last partial page", 4, 2, []int{5}},
		{"no limit", 1, 0, []int{2, 3, 4, 5}},
		{"past the end", 5, 2, []int{}},
		{"negative offset", -10, 10, []int{}},
		{"huge limit", 3, math.MaxInt, []int{4, 5}},
		{"huge offset", math.MaxInt, 10, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, window(items, tt.offset, tt.limit))
		})
	}
}
