package compose

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/readrhq/readr/internal/edition"
	"github.com/readrhq/readr/internal/feed"
	"github.com/readrhq/readr/internal/store"
	"github.com/readrhq/readr/internal/summary"
)

// newsItemCount is the number of fresh items requested per composition.
const newsItemCount = 6

// ItemFetcher provides ranked feed items.
type ItemFetcher interface {
	FetchTopItems(ctx context.Context, limit int) feed.Result
}

// ItemSummarizer produces a structured summary for one item.
type ItemSummarizer interface {
	Summarize(ctx context.Context, in summary.Input) (summary.NewsSummary, error)
}

// SnippetFiller fills missing item snippets before summarization.
type SnippetFiller interface {
	FillMissing(ctx context.Context, items []feed.Item) int
}

// Composer builds a fully positioned card deck for a window label.
type Composer struct {
	db         *store.DB
	feeds      ItemFetcher
	summarizer ItemSummarizer
	snippets   SnippetFiller

	// GreetingName and Location feed the HOME card of a baseline deck.
	GreetingName string
	Location     string
}

// NewComposer creates an edition composer. snippets may be nil to skip
// snippet enrichment.
func NewComposer(db *store.DB, feeds ItemFetcher, summarizer ItemSummarizer, snippets SnippetFiller) *Composer {
	return &Composer{db: db, feeds: feeds, summarizer: summarizer, snippets: snippets}
}

// ComposeFromTemplate produces an in-memory edition for the window label:
// the structural skeleton (from the template when given, baseline
// otherwise) with fresh NEWS cards spliced in before END_TODAY. The result
// is not yet durable; persistence and uniqueness are the caller's concern.
//
// Aggregator failures degrade to fewer (or zero) NEWS cards. Summarizer
// failures propagate: a failed summary must never produce a fabricated
// card.
func (c *Composer) ComposeFromTemplate(ctx context.Context, windowLabel string, template *edition.Edition) (*edition.Edition, error) {
	ed := &edition.Edition{WindowLabel: windowLabel}

	if template != nil && len(template.Cards) > 0 {
		ed.Cards = skeletonFromTemplate(template, windowLabel)
	} else {
		ed.Cards = c.baselineSkeleton(windowLabel)
	}

	insertAt := len(ed.Cards)
	for i, card := range ed.Cards {
		if card.Type == edition.CardEndToday {
			insertAt = i
			break
		}
	}

	result := c.feeds.FetchTopItems(ctx, newsItemCount)
	for _, e := range result.Errors {
		log.Printf("feed error (continuing): %s", e)
	}

	if len(result.Items) == 0 {
		renumber(ed.Cards)
		return ed, nil
	}

	if c.snippets != nil {
		c.snippets.FillMissing(ctx, result.Items)
	}

	newsCards, err := c.resolveNewsCards(ctx, result.Items)
	if err != nil {
		return nil, err
	}

	deck := make([]edition.Card, 0, len(ed.Cards)+len(newsCards))
	deck = append(deck, ed.Cards[:insertAt]...)
	deck = append(deck, newsCards...)
	deck = append(deck, ed.Cards[insertAt:]...)
	renumber(deck)
	ed.Cards = deck

	return ed, nil
}

// resolveNewsCards turns items into NEWS cards, consulting the summary
// cache first and writing fresh summaries back so only the first requester
// for a URL pays the generation cost.
func (c *Composer) resolveNewsCards(ctx context.Context, items []feed.Item) ([]edition.Card, error) {
	var cards []edition.Card
	for _, item := range items {
		source := item.Source
		if source == "" {
			source = "Unknown Source"
		}

		cached, err := c.db.GetSummaryByURL(item.Link)
		if err != nil {
			return nil, fmt.Errorf("cache lookup for %s: %w", item.Link, err)
		}

		var payload summary.NewsSummary
		if cached != nil {
			payload = *cached
		} else {
			payload, err = c.summarizer.Summarize(ctx, summary.Input{
				Title:   item.Title,
				Source:  source,
				URL:     item.Link,
				Snippet: item.Snippet,
			})
			if err != nil {
				return nil, err
			}
			if err := c.db.SetSummary(item.Link, item.Title, source, payload); err != nil {
				return nil, fmt.Errorf("caching summary for %s: %w", item.Link, err)
			}
		}

		cards = append(cards, edition.Card{
			CardID: fmt.Sprintf("news-%d", len(cards)+1),
			Type:   edition.CardNews,
			News:   &edition.NewsPayload{NewsSummary: payload, URL: item.Link},
		})
	}
	return cards, nil
}

// baselineSkeleton is the fixed non-news deck used when no template exists.
func (c *Composer) baselineSkeleton(windowLabel string) []edition.Card {
	greeting := c.GreetingName
	if greeting == "" {
		greeting = "there"
	}
	return []edition.Card{
		{CardID: "welcome-1", Type: edition.CardWelcome},
		{CardID: "home-1", Type: edition.CardHome, Home: &edition.HomePayload{
			GreetingName: greeting,
			Location:     c.Location,
			WindowLabel:  windowLabel,
		}},
		{CardID: "end-today-1", Type: edition.CardEndToday},
		{CardID: "extended-1", Type: edition.CardExtended},
		{CardID: "end-extended-1", Type: edition.CardEndExtended},
	}
}

// skeletonFromTemplate copies the template's non-NEWS cards in position
// order, so structural changes propagate forward while stale news never
// does. Copies are fresh card values; HOME window context is refreshed to
// the new label.
func skeletonFromTemplate(template *edition.Edition, windowLabel string) []edition.Card {
	sorted := make([]edition.Card, len(template.Cards))
	copy(sorted, template.Cards)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position < sorted[j].Position
	})

	var cards []edition.Card
	for _, c := range sorted {
		if c.Type == edition.CardNews {
			continue
		}

		card := edition.Card{CardID: c.CardID, Type: c.Type}
		if c.Home != nil {
			home := *c.Home
			home.WindowLabel = windowLabel
			card.Home = &home
		}
		cards = append(cards, card)
	}
	return cards
}

// renumber reassigns positions 0..n-1 left to right. Position is always
// recomputed at the end, never inherited.
func renumber(cards []edition.Card) {
	for i := range cards {
		cards[i].Position = i
	}
}
