// Package source turns local files into context items and keeps a watched
// source directory in sync with the session. It is the file-system stand-in
// for the browser-tab capture the hosted product uses.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"gentabs/internal/schema"
)

// maxContentBytes caps how much of a file is ingested as context. Anything
// past the cap is truncated with a marker so prompts stay bounded.
const maxContentBytes = 64 * 1024

var supportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".html": true,
	".json": true,
	".csv":  true,
}

// Supported reports whether the file's extension is ingestible.
func Supported(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// LoadFile reads one file into a context item. The item id is fresh on every
// load; identity across loads is the URL, which is the absolute path.
func LoadFile(path string) (schema.ContextItem, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return schema.ContextItem{}, fmt.Errorf("resolve %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return schema.ContextItem{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return schema.ContextItem{}, fmt.Errorf("%s is a directory", path)
	}

	raw, err := os.ReadFile(abs)
	if err != nil {
		return schema.ContextItem{}, fmt.Errorf("read %s: %w", path, err)
	}

	content := string(raw)
	if len(content) > maxContentBytes {
		content = content[:maxContentBytes] + "\n[truncated]"
	}

	name := filepath.Base(abs)
	return schema.ContextItem{
		ID:         uuid.New().String(),
		Title:      strings.TrimSuffix(name, filepath.Ext(name)),
		URL:        "file://" + abs,
		Content:    content,
		CapturedAt: info.ModTime(),
	}, nil
}

// LoadDir loads every supported file directly inside dir, in parallel.
// Results come back sorted by title so ingestion order is stable.
func LoadDir(ctx context.Context, dir string) ([]schema.ContextItem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read source dir %s: %w", dir, err)
	}

	var mu sync.Mutex
	var items []schema.ContextItem

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, entry := range entries {
		if entry.IsDir() || !Supported(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			item, err := LoadFile(path)
			if err != nil {
				return err
			}
			mu.Lock()
			items = append(items, item)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Title < items[j].Title })
	return items, nil
}
