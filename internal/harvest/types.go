package harvest

import "time"

// Record is one harvested catalog item, immutable once journaled.
// URL is the final canonical URL after redirects, not the URL that was
// requested; it is the sole identity key for deduplication.
type Record struct {
	CategoryURL string    `json:"category_url"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Price       *string   `json:"price"`
	Description *string   `json:"description"`
	ScrapedAt   time.Time `json:"scraped_at"`
}

// Failure is journaled whenever a candidate cannot produce a valid Record.
type Failure struct {
	URL    string    `json:"url"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Detail is the raw extraction from a single detail page. Price and
// Description are best-effort; empty means the field was absent.
type Detail struct {
	FinalURL    string
	Title       string
	Price       string
	Description string
}

// RoundOutcome summarizes one orchestration round for the stagnation detector.
type RoundOutcome struct {
	Discovered int
	Added      int
}

// Outcome is the terminal state of a crawl run.
type Outcome int

// Terminal states reported by the orchestrator.
const (
	OutcomeTargetReached Outcome = iota
	OutcomeStagnant
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeTargetReached:
		return "target_reached"
	case OutcomeStagnant:
		return "stagnant"
	default:
		return "unknown"
	}
}

// OptionalText maps an empty extraction to a null journal field.
func OptionalText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
