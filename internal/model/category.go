package model

import "time"

// MaxCategoryNameLen bounds the display name, in runes.
const MaxCategoryNameLen = 30

// Category is a color-coded label. Tasks reference a category but never own
// it; many tasks may share one.
type Category struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultCategories returns the seed set created for a fresh identity.
// IDs are left empty; the caller assigns them. The first entry is the
// reassignment target when another category is deleted.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Personal", Color: "#ef4444", Icon: "●"},
		{Name: "Work", Color: "#3b82f6", Icon: "■"},
		{Name: "Study", Color: "#10b981", Icon: "▲"},
		{Name: "Exercise", Color: "#f59e0b", Icon: "◆"},
		{Name: "Hobby", Color: "#8b5cf6", Icon: "★"},
	}
}
