package fetch

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/readrhq/readr/internal/feed"
)

// maxSnippetLen matches the aggregator's snippet bound.
const maxSnippetLen = 800

// SnippetFetcher fills missing item snippets via HTTP + readability
// extraction. Best-effort: failures are logged, never returned.
type SnippetFetcher struct {
	client *http.Client
}

// NewSnippetFetcher creates a snippet fetcher.
func NewSnippetFetcher(timeout time.Duration) *SnippetFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &SnippetFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FillMissing fetches readable page text for items whose snippet is empty.
// Returns the number of snippets filled.
func (f *SnippetFetcher) FillMissing(ctx context.Context, items []feed.Item) int {
	filled := 0
	for i := range items {
		if items[i].Snippet != "" {
			continue
		}

		text := f.fetchReadableText(ctx, items[i].Link)
		if text == "" {
			log.Printf("No extractable snippet from: %s", items[i].Link)
			continue
		}

		if len(text) > maxSnippetLen {
			text = text[:maxSnippetLen]
		}
		items[i].Snippet = text
		filled++
	}
	return filled
}

func (f *SnippetFetcher) fetchReadableText(ctx context.Context, itemURL string) string {
	req, err := http.NewRequestWithContext(ctx, "GET", itemURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "Readr/1.0 (news reader)")

	resp, err := f.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ""
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}

	parsedURL, _ := url.Parse(itemURL)
	article, err := readability.FromReader(strings.NewReader(string(bodyBytes)), parsedURL)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(article.TextContent)
}
