package models

// Comment is a child item of a Document.
type Comment struct {
	ID        string `json:"id"`
	Body      string `json:"body"`
	Score     int    `json:"score"`
	Author    string `json:"author"`
	Permalink string `json:"permalink,omitempty"`
}

// Document is a top-level submission together with the comments fetched so far.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Score     int       `json:"score"`
	Author    string    `json:"author,omitempty"`
	Subreddit string    `json:"subreddit,omitempty"`
	Permalink string    `json:"permalink,omitempty"`
	Comments  []Comment `json:"comments,omitempty"`
	// MoreComments is true when further comment pages can be expanded.
	MoreComments bool `json:"more_comments,omitempty"`
}

// Polarity is the coarse sentiment of a piece of text.
type Polarity string

const (
	Positive Polarity = "positive"
	Neutral  Polarity = "neutral"
	Negative Polarity = "negative"
)
