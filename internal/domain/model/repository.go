package model

import "time"

// Repository represents a GitHub repository tracked by the sync engine,
// identified by its remote numeric ID.
type Repository struct {
	ID        int64
	Owner     string
	Name      string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
	FetchedAt time.Time

	// OwnerUser is populated during fetch and denormalized into the users
	// table on merge; it is not a column of the repositories table.
	OwnerUser User
}

// FullName returns the "owner/repo" form used throughout the API layer.
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}
