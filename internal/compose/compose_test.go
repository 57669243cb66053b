package compose

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/readrhq/readr/internal/edition"
	"github.com/readrhq/readr/internal/feed"
	"github.com/readrhq/readr/internal/store"
	"github.com/readrhq/readr/internal/summary"
)

type fakeFetcher struct {
	items  []feed.Item
	errors []string
}

func (f *fakeFetcher) FetchTopItems(ctx context.Context, limit int) feed.Result {
	items := f.items
	if len(items) > limit {
		items = items[:limit]
	}
	return feed.Result{Items: items, Errors: f.errors}
}

type fakeSummarizer struct {
	calls int
	err   error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, in summary.Input) (summary.NewsSummary, error) {
	f.calls++
	if f.err != nil {
		return summary.NewsSummary{}, f.err
	}
	return summary.NewsSummary{
		Headline:     "Summary of " + in.Title,
		WhatHappened: "happened",
		WhyItMatters: "matters",
		Source:       in.Source,
	}, nil
}

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testItems(n int) []feed.Item {
	items := make([]feed.Item, n)
	for i := range items {
		items[i] = feed.Item{
			Title:   fmt.Sprintf("Story %d", i+1),
			Link:    fmt.Sprintf("https://a.com/%d", i+1),
			Source:  "Feed A",
			Snippet: "snippet",
		}
	}
	return items
}

func cardTypes(cards []edition.Card) []edition.CardType {
	types := make([]edition.CardType, len(cards))
	for i, c := range cards {
		types[i] = c.Type
	}
	return types
}

func TestComposeBaselineNoItems(t *testing.T) {
	db := openTestDB(t)
	c := NewComposer(db, &fakeFetcher{}, &fakeSummarizer{}, nil)
	c.GreetingName = "Sam"
	c.Location = "Austin, TX"

	label := "2026-01-21 00:00–11:59"
	ed, err := c.ComposeFromTemplate(context.Background(), label, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []edition.CardType{
		edition.CardWelcome, edition.CardHome, edition.CardEndToday,
		edition.CardExtended, edition.CardEndExtended,
	}
	got := cardTypes(ed.Cards)
	if len(got) != len(want) {
		t.Fatalf("expected %d cards, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("card %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	for i, c := range ed.Cards {
		if c.Position != i {
			t.Errorf("card %d: expected position %d, got %d", i, i, c.Position)
		}
	}

	home := ed.Cards[1]
	if home.Home == nil || home.Home.GreetingName != "Sam" || home.Home.WindowLabel != label {
		t.Errorf("unexpected HOME payload: %+v", home.Home)
	}
}

func TestComposeGreetingFallback(t *testing.T) {
	db := openTestDB(t)
	c := NewComposer(db, &fakeFetcher{}, &fakeSummarizer{}, nil)

	ed, err := c.ComposeFromTemplate(context.Background(), "2026-01-21 00:00–11:59", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ed.Cards[1].Home.GreetingName != "there" {
		t.Errorf("expected greeting fallback, got %q", ed.Cards[1].Home.GreetingName)
	}
}

func TestComposeSplicesNewsBeforeEndToday(t *testing.T) {
	db := openTestDB(t)
	sum := &fakeSummarizer{}
	c := NewComposer(db, &fakeFetcher{items: testItems(3)}, sum, nil)

	ed, err := c.ComposeFromTemplate(context.Background(), "2026-01-21 00:00–11:59", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []edition.CardType{
		edition.CardWelcome, edition.CardHome,
		edition.CardNews, edition.CardNews, edition.CardNews,
		edition.CardEndToday, edition.CardExtended, edition.CardEndExtended,
	}
	got := cardTypes(ed.Cards)
	if len(got) != len(want) {
		t.Fatalf("expected %d cards, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("card %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	news := ed.NewsCards()
	for i, card := range news {
		wantID := fmt.Sprintf("news-%d", i+1)
		if card.CardID != wantID {
			t.Errorf("expected card id %q, got %q", wantID, card.CardID)
		}
		if card.News == nil || card.News.URL == "" {
			t.Errorf("news card %d missing payload", i)
		}
	}
	for i, card := range ed.Cards {
		if card.Position != i {
			t.Errorf("expected gapless positions, card %d has %d", i, card.Position)
		}
	}
	if sum.calls != 3 {
		t.Errorf("expected 3 summarizer calls, got %d", sum.calls)
	}
}

func TestComposeUsesTemplateSkeleton(t *testing.T) {
	db := openTestDB(t)
	c := NewComposer(db, &fakeFetcher{items: testItems(1)}, &fakeSummarizer{}, nil)

	oldLabel := "2026-01-20 12:00–23:59"
	newLabel := "2026-01-21 00:00–11:59"
	template := &edition.Edition{
		WindowLabel: oldLabel,
		Cards: []edition.Card{
			{CardID: "welcome-1", Type: edition.CardWelcome, Position: 0},
			{CardID: "home-1", Type: edition.CardHome, Position: 1, Home: &edition.HomePayload{
				GreetingName: "Sam", Location: "Austin, TX", WindowLabel: oldLabel,
			}},
			{CardID: "news-1", Type: edition.CardNews, Position: 2, News: &edition.NewsPayload{URL: "https://stale.com"}},
			{CardID: "end-today-1", Type: edition.CardEndToday, Position: 3},
			{CardID: "extended-1", Type: edition.CardExtended, Position: 4},
			{CardID: "end-extended-1", Type: edition.CardEndExtended, Position: 5},
		},
	}

	ed, err := c.ComposeFromTemplate(context.Background(), newLabel, template)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, card := range ed.Cards {
		if card.News != nil && card.News.URL == "https://stale.com" {
			t.Error("stale NEWS card carried over from template")
		}
	}
	news := ed.NewsCards()
	if len(news) != 1 {
		t.Fatalf("expected 1 fresh news card, got %d", len(news))
	}
	if ed.Cards[2].Type != edition.CardNews {
		t.Errorf("expected news spliced before END_TODAY, got %v", cardTypes(ed.Cards))
	}
	if ed.Cards[1].Home.WindowLabel != newLabel {
		t.Errorf("expected HOME window label refreshed to %q, got %q", newLabel, ed.Cards[1].Home.WindowLabel)
	}
	// Template payload must not be aliased.
	if ed.Cards[1].Home == template.Cards[1].Home {
		t.Error("HOME payload aliases the template")
	}
	if template.Cards[1].Home.WindowLabel != oldLabel {
		t.Error("template mutated during composition")
	}
}

func TestComposeCacheHitSkipsSummarizer(t *testing.T) {
	db := openTestDB(t)
	items := testItems(2)

	cached := summary.NewsSummary{Headline: "Cached", WhatHappened: "W", WhyItMatters: "M", Source: "Feed A"}
	if err := db.SetSummary(items[0].Link, items[0].Title, "Feed A", cached); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sum := &fakeSummarizer{}
	c := NewComposer(db, &fakeFetcher{items: items}, sum, nil)

	ed, err := c.ComposeFromTemplate(context.Background(), "2026-01-21 00:00–11:59", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sum.calls != 1 {
		t.Errorf("expected 1 summarizer call for the uncached item, got %d", sum.calls)
	}
	news := ed.NewsCards()
	if news[0].News.Headline != "Cached" {
		t.Errorf("expected cached summary used, got %q", news[0].News.Headline)
	}

	// The fresh summary must now be cached for the next composition.
	got, err := db.GetSummaryByURL(items[1].Link)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Error("expected fresh summary written back to cache")
	}
}

func TestComposeSummarizerFailurePropagates(t *testing.T) {
	db := openTestDB(t)
	wantErr := errors.New("upstream blew up")
	c := NewComposer(db, &fakeFetcher{items: testItems(1)}, &fakeSummarizer{err: wantErr}, nil)

	_, err := c.ComposeFromTemplate(context.Background(), "2026-01-21 00:00–11:59", nil)
	if !errors.Is(err, wantErr) {
		t.Errorf("expected summarizer error to propagate, got %v", err)
	}
}

func TestComposeAggregatorFailureDegrades(t *testing.T) {
	db := openTestDB(t)
	c := NewComposer(db, &fakeFetcher{errors: []string{"feed down"}}, &fakeSummarizer{}, nil)

	ed, err := c.ComposeFromTemplate(context.Background(), "2026-01-21 00:00–11:59", nil)
	if err != nil {
		t.Fatalf("expected degraded edition, got error: %v", err)
	}
	if len(ed.NewsCards()) != 0 {
		t.Error("expected zero news cards when all feeds fail")
	}
	if len(ed.Cards) != 5 {
		t.Errorf("expected baseline skeleton, got %d cards", len(ed.Cards))
	}
}
