// Package ingest loads a folder of plain-text articles into the blog store.
// Each *.txt file becomes one blog: the file name without its extension is
// the title and the trimmed file body is the content.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eringen/blogapi"
)

// Writer persists a batch of blogs and reports how many were stored.
type Writer interface {
	InsertBlogs(ctx context.Context, blogs []blogapi.Blog) (int, error)
}

// Report summarizes one ingestion run.
type Report struct {
	Files    int      // .txt files found
	Inserted int      // blogs written
	Skipped  []string // files ignored because their title was empty
	Blogs    []blogapi.Blog
}

// Loader reads articles from Dir.
type Loader struct {
	Dir string
	Log *zap.Logger
	Now func() time.Time
}

// Read parses every *.txt file directly under Dir, in name order. All blogs
// in one batch share the same creation time.
func (l *Loader) Read() ([]blogapi.Blog, []string, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read dir %s: %w", l.Dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".txt" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	createdAt := now().UTC()

	var (
		blogs   []blogapi.Blog
		skipped []string
	)
	for _, name := range names {
		title := strings.TrimSuffix(name, ".txt")
		if strings.TrimSpace(title) == "" {
			skipped = append(skipped, name)
			continue
		}
		data, err := os.ReadFile(filepath.Join(l.Dir, name))
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", name, err)
		}
		blogs = append(blogs, blogapi.Blog{
			Title:     title,
			Content:   strings.TrimSpace(string(data)),
			CreatedAt: createdAt,
		})
	}
	return blogs, skipped, nil
}

// Run reads Dir and writes the blogs to w. An empty folder writes nothing
// and is not an error.
func (l *Loader) Run(ctx context.Context, w Writer) (Report, error) {
	log := l.Log
	if log == nil {
		log = zap.NewNop()
	}

	blogs, skipped, err := l.Read()
	if err != nil {
		return Report{}, err
	}
	report := Report{Files: len(blogs) + len(skipped), Skipped: skipped, Blogs: blogs}
	for _, name := range skipped {
		log.Warn("skipping file with empty title", zap.String("file", name))
	}

	if len(blogs) == 0 {
		log.Info("no blogs to save", zap.String("dir", l.Dir))
		return report, nil
	}

	n, err := w.InsertBlogs(ctx, blogs)
	if err != nil {
		return report, fmt.Errorf("insert blogs: %w", err)
	}
	report.Inserted = n
	for _, b := range blogs {
		log.Debug("inserted blog",
			zap.String("id", b.ID),
			zap.String("title", b.Title),
			zap.Int("content_length", len([]rune(b.Content))),
		)
	}
	log.Info("ingestion complete", zap.Int("files", report.Files), zap.Int("inserted", n))
	return report, nil
}
