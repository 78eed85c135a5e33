package entities

import "time"

// ChatMessage is one stored chat line split into its parts.
// Raw keeps the "[date, time] Sender: body" form used everywhere else.
type ChatMessage struct {
	Raw    string `json:"raw"`
	Date   string `json:"date,omitempty"`
	Sender string `json:"sender,omitempty"`
	Body   string `json:"body,omitempty"`
}

// ChatImport records one wholesale replacement of the message collection
type ChatImport struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"` // e.g., "upload", "sample"
	FileName     string    `json:"file_name"`
	MessageCount int       `json:"message_count"`
	SkippedFiles int       `json:"skipped_files"`
	CreatedAt    time.Time `json:"created_at"`
}

type Answer struct {
	Text     string `json:"answer"`
	Category string `json:"category,omitempty"`
	Strategy string `json:"strategy"`
}

// AskStat counts answered questions per day. Question text is never stored.
type AskStat struct {
	Day      string `json:"day"`
	Category string `json:"category"`
	Strategy string `json:"strategy"`
	Count    int    `json:"count"`
}
