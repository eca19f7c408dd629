package model

import "time"

// MaxTitleLength is the longest title, in characters, a note may carry.
const MaxTitleLength = 100

type Note struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
