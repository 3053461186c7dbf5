package models

import "time"

// Draft is an unsaved post title/content held per device so the write page
// can offer recovery. Replaces the old per-browser local storage draft,
// which could be clobbered by concurrent tabs.
type Draft struct {
	Title   string    `json:"title"`
	Content string    `json:"content"`
	SavedAt time.Time `json:"savedAt"`
}
