package domain

import (
	"time"
)

// Post is a blog post. ID is assigned by the store; Title and Content are
// stored as given.
type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
