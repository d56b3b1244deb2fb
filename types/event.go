package types

// ContentUpdateEvent announces new content of a config file after it was persisted.
type ContentUpdateEvent struct {
	Category Category `json:"category"`
	Content  string   `json:"content"`
}
