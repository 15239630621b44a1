package hikcentral

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// PageFunc fetches one page of a vendor list.
type PageFunc[T any] func(ctx context.Context, pageNo, pageSize int) (*Page[T], error)

// ScanOptions bounds a full-list scan.
type ScanOptions struct {
	PageSize    int
	Concurrency int

	// MaxPages caps the number of pages fetched. Zero means no cap.
	MaxPages int

	Logger Logger
}

// ScanStats describes a completed scan.
type ScanStats struct {
	Total       int
	Pages       int
	FailedPages int
}

// Partial reports whether some pages could not be fetched.
func (s ScanStats) Partial() bool {
	return s.FailedPages > 0
}

// Scan fetches page 1, derives the page count from its total, and fetches
// the remaining pages concurrently. Items are returned in page order. A
// page-1 failure is returned as an error; later page failures are logged,
// counted and skipped.
func Scan[T any](ctx context.Context, fetch PageFunc[T], opts ScanOptions) ([]T, ScanStats, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}

	first, err := fetch(ctx, 1, opts.PageSize)
	if err != nil {
		return nil, ScanStats{}, fmt.Errorf("fetching page 1: %w", err)
	}

	stats := ScanStats{Total: first.Total, Pages: 1}
	if first.Total <= 0 || len(first.List) == 0 {
		return first.List, stats, nil
	}

	pages := (first.Total + opts.PageSize - 1) / opts.PageSize
	if opts.MaxPages > 0 && pages > opts.MaxPages {
		pages = opts.MaxPages
	}
	stats.Pages = pages
	if pages == 1 {
		return first.List, stats, nil
	}

	results := make([][]T, pages)
	results[0] = first.List
	failed := make([]bool, pages)

	var g errgroup.Group
	g.SetLimit(opts.Concurrency)
	for pageNo := 2; pageNo <= pages; pageNo++ {
		g.Go(func() error {
			page, err := fetch(ctx, pageNo, opts.PageSize)
			if err != nil {
				opts.Logger.Warn("skipping page", "page", pageNo, "error", err)
				failed[pageNo-1] = true
				return nil
			}
			results[pageNo-1] = page.List
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never return errors

	n := 0
	for i, list := range results {
		if failed[i] {
			stats.FailedPages++
		}
		n += len(list)
	}
	items := make([]T, 0, n)
	for _, list := range results {
		items = append(items, list...)
	}
	return items, stats, nil
}
