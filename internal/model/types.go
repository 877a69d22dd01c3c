package model

import "time"

// Product holds the metadata scraped from a product page. Fields are
// pointers so that "never found" stays distinct from "found but empty";
// absent fields collapse to display defaults only at the HTTP edge.
type Product struct {
	Title       *string `json:"title,omitempty"`
	ImageURL    *string `json:"imageUrl,omitempty"`
	Price       *string `json:"price,omitempty"`
	Currency    *string `json:"currency,omitempty"`
	Rating      *string `json:"rating,omitempty"`
	ReviewCount *string `json:"reviewCount,omitempty"`
}

// IsEmpty reports whether no field was extracted at all.
func (p Product) IsEmpty() bool {
	return p.Title == nil && p.ImageURL == nil && p.Price == nil &&
		p.Currency == nil && p.Rating == nil && p.ReviewCount == nil
}

// Verdict labels accepted from the scoring collaborator.
const (
	VerdictWinner = "WINNER"
	VerdictLoser  = "LOSER"
)

// Verdict is the scored judgment returned by the LLM collaborator.
// Score is constrained to [0,100]; Verdict to WINNER/LOSER. Whether the
// two agree with each other is deliberately not checked.
type Verdict struct {
	Score   int    `json:"score"`
	Verdict string `json:"verdict"`
	Reason  string `json:"reason"`
}

// Analysis is the persisted record of a single analyze request.
// Rows are append-only; they are never mutated after insert.
type Analysis struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id,omitempty"`
	URL          string    `json:"url"`
	Domain       string    `json:"domain,omitempty"`
	Score        int       `json:"score"`
	Verdict      string    `json:"verdict"`
	Reason       string    `json:"reason"`
	Title        string    `json:"title,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	Price        string    `json:"price,omitempty"`
	Currency     string    `json:"currency,omitempty"`
	Rating       string    `json:"rating,omitempty"`
	ReviewCount  string    `json:"review_count,omitempty"`
	PageMarkdown string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
