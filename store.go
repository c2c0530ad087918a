package blogapi

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
)

func init() {
	// fold lower-cases the full Unicode range; LIKE and lower() only fold ASCII.
	sqlite.MustRegisterDeterministicScalarFunction("fold", 1, func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case string:
			return strings.ToLower(v), nil
		case []byte:
			return strings.ToLower(string(v)), nil
		case nil:
			return nil, nil
		default:
			return nil, fmt.Errorf("fold: unsupported argument type %T", v)
		}
	})
}

// Store is the document store the query layer reads from. Implementations
// must be safe for concurrent use.
type Store interface {
	// Count returns the number of documents in the corpus.
	Count(ctx context.Context) (int, error)
	// List returns a window of documents ordered by field and direction.
	List(ctx context.Context, field SortField, dir SortDirection, offset, limit int) ([]Blog, error)
	// CountMatching returns the number of documents whose title or content
	// contains term, ignoring case.
	CountMatching(ctx context.Context, term string) (int, error)
	// Search returns a newest-first window of the documents CountMatching counts.
	Search(ctx context.Context, term string, offset, limit int) ([]Blog, error)
	// Get returns the document with the given identifier or ErrNotFound.
	Get(ctx context.Context, id string) (Blog, error)
	// GetByTitle returns the first document with exactly this title or ErrNotFound.
	GetByTitle(ctx context.Context, title string) (Blog, error)
	// LengthStats aggregates content length in characters over the corpus.
	LengthStats(ctx context.Context) (LengthStats, error)
	// Summaries returns title projections in the given order. A limit of
	// zero returns every document.
	Summaries(ctx context.Context, field SortField, dir SortDirection, limit int) ([]BlogSummary, error)
	// Ping checks connectivity.
	Ping(ctx context.Context) error
}

// timeLayout is fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at path, ensures the
// data directory exists, and creates the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL so the ingest command can write while the server reads.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		db.Close()
		return nil, err
	}
	if path == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(4)
	}
	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStoreFromDB wraps an already opened database. The schema is
// assumed to exist.
func NewSQLiteStoreFromDB(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS blogs (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_blogs_created_at ON blogs(created_at);
CREATE INDEX IF NOT EXISTS idx_blogs_title ON blogs(title);
`)
	return err
}

type blogRow struct {
	ID        string `db:"id"`
	Title     string `db:"title"`
	Content   string `db:"content"`
	CreatedAt string `db:"created_at"`
}

func (r blogRow) blog() (Blog, error) {
	t, err := time.Parse(timeLayout, r.CreatedAt)
	if err != nil {
		return Blog{}, fmt.Errorf("parse created_at %q: %w", r.CreatedAt, err)
	}
	return Blog{ID: r.ID, Title: r.Title, Content: r.Content, CreatedAt: t}, nil
}

type summaryRow struct {
	ID        string `db:"id"`
	Title     string `db:"title"`
	CreatedAt string `db:"created_at"`
}

func toBlogs(rows []blogRow) ([]Blog, error) {
	blogs := make([]Blog, 0, len(rows))
	for _, r := range rows {
		b, err := r.blog()
		if err != nil {
			return nil, err
		}
		blogs = append(blogs, b)
	}
	return blogs, nil
}

// orderBy builds the ORDER BY clause from the enumerated sort field. Ties
// are broken by id so paging is stable.
func orderBy(field SortField, dir SortDirection) string {
	order := "DESC"
	if dir == SortAsc {
		order = "ASC"
	}
	switch field {
	case SortByTitle:
		return " ORDER BY title " + order + ", id ASC"
	case SortByID:
		return " ORDER BY id " + order
	default:
		return " ORDER BY created_at " + order + ", id ASC"
	}
}

// matchClause selects blogs whose folded title or content contains the
// folded term. instr matches literally, so % and _ need no escaping.
const matchClause = ` WHERE instr(fold(title), ?) > 0 OR instr(fold(content), ?) > 0`

func foldTerm(term string) string {
	return strings.ToLower(term)
}

// Count returns the number of blogs.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM blogs`); err != nil {
		return 0, err
	}
	return n, nil
}

// List returns a sorted window of blogs.
func (s *SQLiteStore) List(ctx context.Context, field SortField, dir SortDirection, offset, limit int) ([]Blog, error) {
	var rows []blogRow
	q := `SELECT id, title, content, created_at FROM blogs` + orderBy(field, dir) + ` LIMIT ? OFFSET ?`
	if err := s.db.SelectContext(ctx, &rows, q, limit, offset); err != nil {
		return nil, err
	}
	return toBlogs(rows)
}

// CountMatching counts blogs whose title or content contains term.
func (s *SQLiteStore) CountMatching(ctx context.Context, term string) (int, error) {
	var n int
	pattern := foldTerm(term)
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM blogs`+matchClause, pattern, pattern); err != nil {
		return 0, err
	}
	return n, nil
}

// Search returns matching blogs, newest first.
func (s *SQLiteStore) Search(ctx context.Context, term string, offset, limit int) ([]Blog, error) {
	var rows []blogRow
	pattern := foldTerm(term)
	q := `SELECT id, title, content, created_at FROM blogs` + matchClause +
		orderBy(SortByCreatedAt, SortDesc) + ` LIMIT ? OFFSET ?`
	if err := s.db.SelectContext(ctx, &rows, q, pattern, pattern, limit, offset); err != nil {
		return nil, err
	}
	return toBlogs(rows)
}

// Get returns a blog by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Blog, error) {
	return s.getOne(ctx, `SELECT id, title, content, created_at FROM blogs WHERE id = ?`, id)
}

// GetByTitle returns the oldest blog with exactly this title.
func (s *SQLiteStore) GetByTitle(ctx context.Context, title string) (Blog, error) {
	return s.getOne(ctx, `SELECT id, title, content, created_at FROM blogs WHERE title = ? ORDER BY created_at ASC, id ASC LIMIT 1`, title)
}

func (s *SQLiteStore) getOne(ctx context.Context, q string, arg any) (Blog, error) {
	var row blogRow
	if err := s.db.GetContext(ctx, &row, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Blog{}, &NotFoundError{Resource: "Blog"}
		}
		return Blog{}, err
	}
	return row.blog()
}

// LengthStats aggregates content length. SQLite's length() counts
// characters for TEXT values.
func (s *SQLiteStore) LengthStats(ctx context.Context) (LengthStats, error) {
	var ls LengthStats
	err := s.db.GetContext(ctx, &ls, `
		SELECT
			COALESCE(AVG(length(content)), 0) AS avg_length,
			COALESCE(MIN(length(content)), 0) AS min_length,
			COALESCE(MAX(length(content)), 0) AS max_length
		FROM blogs`)
	if err != nil {
		return LengthStats{}, err
	}
	return ls, nil
}

// Summaries returns title projections in the given order.
func (s *SQLiteStore) Summaries(ctx context.Context, field SortField, dir SortDirection, limit int) ([]BlogSummary, error) {
	var rows []summaryRow
	q := `SELECT id, title, created_at FROM blogs` + orderBy(field, dir)
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]BlogSummary, 0, len(rows))
	for _, r := range rows {
		t, err := time.Parse(timeLayout, r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", r.CreatedAt, err)
		}
		out = append(out, BlogSummary{ID: r.ID, Title: r.Title, CreatedAt: t})
	}
	return out, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InsertBlogs stores blogs in one transaction, assigning each a new
// time-ordered id. It is used by the ingestion command only.
func (s *SQLiteStore) InsertBlogs(ctx context.Context, blogs []Blog) (int, error) {
	if len(blogs) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO blogs (id, title, content, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i := range blogs {
		id, err := uuid.NewV7()
		if err != nil {
			return 0, err
		}
		blogs[i].ID = id.String()
		if _, err := stmt.ExecContext(ctx, blogs[i].ID, blogs[i].Title, blogs[i].Content, formatTime(blogs[i].CreatedAt)); err != nil {
			return 0, fmt.Errorf("insert %q: %w", blogs[i].Title, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(blogs), nil
}
