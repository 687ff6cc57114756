package model

import "time"

// User is a denormalized GitHub account encountered as a repository owner or
// record author. Login is the primary key; the numeric ID is kept alongside.
type User struct {
	Login     string
	ID        int64
	Type      string // "User", "Organization", or "Bot".
	Name      string
	Email     string
	FetchedAt time.Time
}
