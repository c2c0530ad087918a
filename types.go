package blogapi

import "time"

// Blog is the stored article. Documents are created by the ingestion command
// and never modified through the API.
type Blog struct {
	ID        string    `json:"_id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// BlogSummary is the title + creation time projection used by the title
// index and the statistics lists.
type BlogSummary struct {
	ID        string    `json:"_id" db:"id"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Summary projects a Blog down to its BlogSummary.
func (b Blog) Summary() BlogSummary {
	return BlogSummary{ID: b.ID, Title: b.Title, CreatedAt: b.CreatedAt}
}

// ListPagination is the pagination metadata returned by the listing endpoint.
type ListPagination struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalBlogs   int  `json:"totalBlogs"`
	BlogsPerPage int  `json:"blogsPerPage"`
	HasNextPage  bool `json:"hasNextPage"`
	HasPrevPage  bool `json:"hasPrevPage"`
}

// SearchPagination is the pagination metadata returned by search. It echoes
// the normalized term and leaves the next/prev flags to the caller.
type SearchPagination struct {
	CurrentPage  int    `json:"currentPage"`
	TotalPages   int    `json:"totalPages"`
	TotalBlogs   int    `json:"totalBlogs"`
	BlogsPerPage int    `json:"blogsPerPage"`
	SearchQuery  string `json:"searchQuery"`
}

// BlogPage is one page of a sorted listing.
type BlogPage struct {
	Blogs      []Blog
	Pagination ListPagination
}

// SearchPage is one page of search results.
type SearchPage struct {
	Blogs      []Blog
	Pagination SearchPagination
}

// ContentStats holds content length metrics in characters.
type ContentStats struct {
	AverageLength int `json:"averageLength"`
	MinimumLength int `json:"minimumLength"`
	MaximumLength int `json:"maximumLength"`
}

// Stats is the corpus summary served by /api/stats.
type Stats struct {
	TotalBlogs   int           `json:"totalBlogs"`
	ContentStats ContentStats  `json:"contentStats"`
	RecentBlogs  []BlogSummary `json:"recentBlogs"`
	OldestBlogs  []BlogSummary `json:"oldestBlogs"`
}

// LengthStats is the raw content length aggregate returned by a Store.
// Average is unrounded; all fields are zero for an empty corpus.
type LengthStats struct {
	Average float64 `db:"avg_length"`
	Minimum int     `db:"min_length"`
	Maximum int     `db:"max_length"`
}

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success    bool   `json:"success"`
	Data       any    `json:"data,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
	Pagination any    `json:"pagination,omitempty"`
}
