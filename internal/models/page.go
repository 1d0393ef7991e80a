package models

// Page wraps one slice of a paginated listing.
type Page[T any] struct {
	Data         []T   `json:"data"`
	Page         int   `json:"page"`
	ItemsPerPage int   `json:"items_per_page"`
	TotalItems   int64 `json:"total_items"`
}
