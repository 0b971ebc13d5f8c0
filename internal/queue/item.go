package queue

import "strings"

// Item is one publishable content record. Immutable once stored.
//
// The wire shape matches the durable document: image_url is nullable,
// link may be empty, timestamp is an ISO-8601 string.
type Item struct {
	Title     string  `json:"title"`
	Summary   string  `json:"summary"`
	Link      string  `json:"link"`
	ImageURL  *string `json:"image_url"`
	Timestamp string  `json:"timestamp"`
}

// Key returns the structural identity of an item (title+link+timestamp).
// The queue does not deduplicate; the key exists for callers and tests.
func (it Item) Key() string {
	return it.Title + "\x1f" + it.Link + "\x1f" + it.Timestamp
}

// Valid reports whether the item has enough content to be published.
func (it Item) Valid() bool {
	return strings.TrimSpace(it.Title) != ""
}
