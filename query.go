package blogapi

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Pagination limits.
const (
	DefaultLimit   = 10
	MaxListLimit   = 100
	MaxSearchLimit = 50
	MinSearchChars = 2
)

// SortField is a field a listing may be ordered by.
type SortField string

const (
	SortByCreatedAt SortField = "createdAt"
	SortByTitle     SortField = "title"
	SortByID        SortField = "_id"
)

// ParseSortField maps a raw sortBy value onto the allow-list. Anything not
// on the list falls back to creation time.
func ParseSortField(raw string) SortField {
	switch SortField(raw) {
	case SortByTitle:
		return SortByTitle
	case SortByID:
		return SortByID
	case SortByCreatedAt:
		return SortByCreatedAt
	default:
		return SortByCreatedAt
	}
}

// SortDirection is ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortDirection returns SortAsc only for the exact token "asc".
func ParseSortDirection(raw string) SortDirection {
	if raw == string(SortAsc) {
		return SortAsc
	}
	return SortDesc
}

// ListQuery is a normalized listing request.
type ListQuery struct {
	Page      int
	Limit     int
	SortBy    SortField
	SortOrder SortDirection
}

// Offset is the number of documents skipped before this page.
func (q ListQuery) Offset() int {
	return offset(q.Page, q.Limit)
}

// ParseListQuery normalizes raw listing parameters. It never fails: bad
// input is silently replaced with a usable value.
func ParseListQuery(page, limit, sortBy, sortOrder string) ListQuery {
	return ListQuery{
		Page:      parsePage(page),
		Limit:     parseLimit(limit, MaxListLimit),
		SortBy:    ParseSortField(sortBy),
		SortOrder: ParseSortDirection(sortOrder),
	}
}

// SearchQuery is a normalized search request. Results are always ordered
// newest first.
type SearchQuery struct {
	Term  string
	Page  int
	Limit int
}

// Offset is the number of matches skipped before this page.
func (q SearchQuery) Offset() int {
	return offset(q.Page, q.Limit)
}

// offset is (page-1)*limit, saturating at math.MaxInt.
func offset(page, limit int) int {
	if page <= 1 || limit <= 0 {
		return 0
	}
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

// ParseSearchQuery trims the term and normalizes pagination. Unlike
// ParseListQuery it rejects input: a term shorter than MinSearchChars
// returns a *ValidationError.
func ParseSearchQuery(term, page, limit string) (SearchQuery, error) {
	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < MinSearchChars {
		return SearchQuery{}, &ValidationError{
			Message: "Search query must be at least 2 characters long",
		}
	}
	return SearchQuery{
		Term:  term,
		Page:  parsePage(page),
		Limit: parseLimit(limit, MaxSearchLimit),
	}, nil
}

// parseInt parses a decimal integer. Numbers too large for an int saturate
// at math.MaxInt or math.MinInt.
func parseInt(raw string) (int, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 0)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return int(n), true
}

func parsePage(raw string) int {
	n, ok := parseInt(raw)
	if !ok || n < 1 {
		return 1
	}
	return n
}

// parseLimit treats absent, unparseable and zero values as DefaultLimit and
// clamps everything else into [1, max].
func parseLimit(raw string, max int) int {
	n, ok := parseInt(raw)
	if !ok || n == 0 {
		n = DefaultLimit
	}
	if n < 1 {
		return 1
	}
	if n > max {
		return max
	}
	return n
}

// totalPages is ceil(total / limit), and 0 for an empty result.
func totalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
