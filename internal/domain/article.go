package domain

import "time"

// Candidate is what the fetch layer hands to ingestion for one discovered link.
type Candidate struct {
	Link        string
	Title       string
	FullText    string
	Category    string
	Subcategory string
	// IsArticle is true only when category tags were found on the page.
	IsArticle   bool
	PublishedOn string
	ImageURL    string
}

// Article is a persisted news item. Link is the natural key.
type Article struct {
	ID          int64
	Link        string
	Title       string
	FullText    string
	Summary     string
	Category    string
	Subcategory string
	IsArticle   bool
	PublishedOn string
	ImageURL    string
	CreatedAt   time.Time
}

// NewArticle builds the row to persist from an extracted candidate.
func NewArticle(c Candidate, summary string) Article {
	return Article{
		Link:        c.Link,
		Title:       c.Title,
		FullText:    c.FullText,
		Summary:     summary,
		Category:    c.Category,
		Subcategory: c.Subcategory,
		IsArticle:   c.IsArticle,
		PublishedOn: c.PublishedOn,
		ImageURL:    c.ImageURL,
	}
}

// ScoringText is the text shown to the scorer: title, blank line, body.
func (c Candidate) ScoringText() string {
	if c.Title == "" {
		return c.FullText
	}
	return c.Title + "\n\n" + c.FullText
}

// ScoredArticle is one row of a ranked feed.
type ScoredArticle struct {
	Article          Article
	JobScore         float64
	AvgInterestScore float64
	Relevance        float64
}

// IngestState enumerates pipeline milestones for a single candidate.
type IngestState string

const (
	StateDiscovered     IngestState = "discovered"
	StateDuplicate      IngestState = "duplicate"
	StateExtracted      IngestState = "extracted"
	StateScored         IngestState = "scored"
	StateScoringSkipped IngestState = "scoring_skipped"
	StatePersisted      IngestState = "persisted"
	StateFailed         IngestState = "failed"
)
