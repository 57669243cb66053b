package feed

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
)

// maxSnippetLen bounds stored snippet size.
const maxSnippetLen = 800

// Item is one normalized feed entry. Transient: produced here and consumed
// immediately by composition.
type Item struct {
	Title     string
	Link      string
	Published *time.Time
	Source    string
	Snippet   string
}

// Result holds aggregated items plus per-source diagnostic errors. The
// aggregation itself never fails; zero usable items with populated Errors
// is a valid outcome.
type Result struct {
	Items  []Item
	Errors []string
}

// Aggregator fetches configured feeds concurrently, normalizes,
// deduplicates, and ranks their entries.
type Aggregator struct {
	urls []string
}

// NewAggregator creates an aggregator over the given feed URLs.
func NewAggregator(urls []string) *Aggregator {
	return &Aggregator{urls: urls}
}

// FetchTopItems fetches all sources concurrently and returns up to limit
// items, newest first. One slow or failing source never serializes or
// aborts the others; each failure becomes one entry in Errors.
func (a *Aggregator) FetchTopItems(ctx context.Context, limit int) Result {
	if len(a.urls) == 0 {
		return Result{Errors: []string{"no feed sources configured; provide comma-separated feed URLs"}}
	}

	perSource := make([][]Item, len(a.urls))
	failures := make([]string, len(a.urls))

	g, gctx := errgroup.WithContext(ctx)
	for i, url := range a.urls {
		i, url := i, url
		g.Go(func() error {
			items, err := fetchFeed(gctx, url)
			if err != nil {
				failures[i] = fmt.Sprintf("%s: %v", url, err)
				return nil // non-fatal
			}
			perSource[i] = items
			return nil
		})
	}
	g.Wait()

	var all []Item
	var errs []string
	for i := range a.urls {
		if failures[i] != "" {
			errs = append(errs, failures[i])
			continue
		}
		all = append(all, perSource[i]...)
	}

	deduped := dedupe(all)

	// Newest first; items without a parseable timestamp sort last.
	// Stable sort keeps first-seen order among equals.
	sort.SliceStable(deduped, func(i, j int) bool {
		return publishedUnix(deduped[i]) > publishedUnix(deduped[j])
	})

	if len(deduped) > limit {
		deduped = deduped[:limit]
	}

	return Result{Items: deduped, Errors: errs}
}

func fetchFeed(ctx context.Context, url string) ([]Item, error) {
	parser := gofeed.NewParser()
	feed, err := parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, err
	}

	source := strings.TrimSpace(feed.Title)
	if source == "" {
		source = url
	}

	var items []Item
	for _, it := range feed.Items {
		title := strings.TrimSpace(it.Title)
		link := strings.TrimSpace(it.Link)
		if title == "" || link == "" {
			continue
		}

		var published *time.Time
		if it.PublishedParsed != nil {
			published = it.PublishedParsed
		} else if it.UpdatedParsed != nil {
			published = it.UpdatedParsed
		}

		snippet := it.Description
		if snippet == "" {
			snippet = it.Content
		}
		snippet = truncate(stripHTML(snippet), maxSnippetLen)

		items = append(items, Item{
			Title:     title,
			Link:      link,
			Published: published,
			Source:    source,
			Snippet:   snippet,
		})
	}
	return items, nil
}

// dedupe collapses items by link (title fallback when link is empty);
// first occurrence wins.
func dedupe(items []Item) []Item {
	seen := make(map[string]struct{}, len(items))
	var out []Item
	for _, item := range items {
		key := item.Link
		if key == "" {
			key = item.Title
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

func publishedUnix(item Item) int64 {
	if item.Published == nil {
		return 0
	}
	return item.Published.UnixMilli()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
