package edition

import "github.com/readrhq/readr/internal/summary"

// CardType is the closed set of card roles in a deck.
type CardType string

const (
	CardWelcome     CardType = "WELCOME"
	CardHome        CardType = "HOME"
	CardNews        CardType = "NEWS"
	CardEndToday    CardType = "END_TODAY"
	CardExtended    CardType = "EXTENDED"
	CardEndExtended CardType = "END_EXTENDED"
)

// MockSource marks seeded placeholder NEWS cards that have not been
// replaced by real ingestion yet.
const MockSource = "Mock Source"

// HomePayload is the payload carried by HOME cards.
type HomePayload struct {
	GreetingName string `json:"greetingName"`
	Location     string `json:"location"`
	WindowLabel  string `json:"windowLabel"`
}

// NewsPayload is the payload carried by NEWS cards: the structured summary
// plus the source item URL.
type NewsPayload struct {
	summary.NewsSummary
	URL string `json:"url"`
}

// Card is one unit of a deck. At most one payload pointer is set,
// matching Type; the non-payload types carry neither.
type Card struct {
	CardID   string
	Type     CardType
	Position int
	Home     *HomePayload
	News     *NewsPayload
}

// Edition is the full ordered card deck for one window label. Cards are
// owned exclusively by their edition and ordered by Position, 0-based with
// no gaps.
type Edition struct {
	ID          string
	WindowLabel string
	Cards       []Card
}

// NewsCards returns the NEWS cards of the deck in position order.
func (e *Edition) NewsCards() []Card {
	var news []Card
	for _, c := range e.Cards {
		if c.Type == CardNews {
			news = append(news, c)
		}
	}
	return news
}

// IsPlaceholder reports whether the edition is a seeded stand-in: it has
// NEWS cards and every one of them is mock data (MockSource, empty item
// URL, or no payload at all).
func (e *Edition) IsPlaceholder() bool {
	news := e.NewsCards()
	if len(news) == 0 {
		return false
	}
	for _, c := range news {
		if c.News == nil {
			continue
		}
		if c.News.Source != MockSource && c.News.URL != "" {
			return false
		}
	}
	return true
}
