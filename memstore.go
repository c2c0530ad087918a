package blogapi

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store. It is used in tests and for serving
// a corpus that does not need to outlive the process.
type MemoryStore struct {
	mu    sync.RWMutex
	blogs []Blog
}

// NewMemoryStore returns a store holding blogs. Blogs without an id are
// assigned one.
func NewMemoryStore(blogs ...Blog) *MemoryStore {
	s := &MemoryStore{}
	_, _ = s.InsertBlogs(context.Background(), blogs)
	return s
}

// InsertBlogs appends blogs, assigning ids where missing.
func (s *MemoryStore) InsertBlogs(_ context.Context, blogs []Blog) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range blogs {
		if blogs[i].ID == "" {
			id, err := uuid.NewV7()
			if err != nil {
				return i, err
			}
			blogs[i].ID = id.String()
		}
		s.blogs = append(s.blogs, blogs[i])
	}
	return len(blogs), nil
}

// sorted returns a copy of blogs ordered like SQLiteStore orders them.
func sorted(blogs []Blog, field SortField, dir SortDirection) []Blog {
	out := make([]Blog, len(blogs))
	copy(out, blogs)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		var c int
		switch field {
		case SortByTitle:
			c = strings.Compare(a.Title, b.Title)
		case SortByID:
			c = strings.Compare(a.ID, b.ID)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if dir == SortDesc {
			c = -c
		}
		if c == 0 {
			return a.ID < b.ID
		}
		return c < 0
	})
	return out
}

func window[T any](items []T, offset, limit int) []T {
	if offset < 0 || offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}
	return items[offset:end]
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blogs), nil
}

func (s *MemoryStore) List(_ context.Context, field SortField, dir SortDirection, offset, limit int) ([]Blog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return window(sorted(s.blogs, field, dir), offset, limit), nil
}

func (s *MemoryStore) matching(term string) []Blog {
	needle := strings.ToLower(term)
	var out []Blog
	for _, b := range s.blogs {
		if strings.Contains(strings.ToLower(b.Title), needle) || strings.Contains(strings.ToLower(b.Content), needle) {
			out = append(out, b)
		}
	}
	return out
}

func (s *MemoryStore) CountMatching(_ context.Context, term string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matching(term)), nil
}

func (s *MemoryStore) Search(_ context.Context, term string, offset, limit int) ([]Blog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return window(sorted(s.matching(term), SortByCreatedAt, SortDesc), offset, limit), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Blog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.blogs {
		if b.ID == id {
			return b, nil
		}
	}
	return Blog{}, &NotFoundError{Resource: "Blog"}
}

func (s *MemoryStore) GetByTitle(_ context.Context, title string) (Blog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range sorted(s.blogs, SortByCreatedAt, SortAsc) {
		if b.Title == title {
			return b, nil
		}
	}
	return Blog{}, &NotFoundError{Resource: "Blog"}
}

func (s *MemoryStore) LengthStats(_ context.Context) (LengthStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.blogs) == 0 {
		return LengthStats{}, nil
	}
	ls := LengthStats{Minimum: math.MaxInt}
	total := 0
	for _, b := range s.blogs {
		n := utf8.RuneCountInString(b.Content)
		total += n
		ls.Minimum = min(ls.Minimum, n)
		ls.Maximum = max(ls.Maximum, n)
	}
	ls.Average = float64(total) / float64(len(s.blogs))
	return ls, nil
}

func (s *MemoryStore) Summaries(_ context.Context, field SortField, dir SortDirection, limit int) ([]BlogSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blogs := window(sorted(s.blogs, field, dir), 0, limit)
	out := make([]BlogSummary, len(blogs))
	for i, b := range blogs {
		out[i] = b.Summary()
	}
	return out, nil
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }
