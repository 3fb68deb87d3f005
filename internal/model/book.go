package model

import "time"

// Book represents a catalog title together with its copy pool. Copies are
// counted per bucket; total must always equal the sum of the buckets.
type Book struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Author      string     `json:"author,omitempty"`
	CategoryID  *int64     `json:"category_id,omitempty"`
	Description string     `json:"description,omitempty"`
	CoverMime   string     `json:"cover_mime,omitempty"`
	Total       int        `json:"total_quantity"`
	Available   int        `json:"available_quantity"`
	Borrowed    int        `json:"borrowed_quantity"`
	Lost        int        `json:"lost_count"`
	Damaged     int        `json:"damaged_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`

	// Joined fields (not always populated).
	CategoryName string `json:"category_name,omitempty"`
}

// PoolConsistent reports whether the copy-pool bucket counts add up.
func (b *Book) PoolConsistent() bool {
	return b.Available >= 0 && b.Borrowed >= 0 && b.Lost >= 0 && b.Damaged >= 0 &&
		b.Total == b.Available+b.Borrowed+b.Lost+b.Damaged
}

// Category groups catalog titles.
type Category struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
