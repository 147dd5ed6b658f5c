package resources

import "time"

type Resource struct {
	ID string

	Name        string
	Description string

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Group struct {
	ID string

	Name        string
	Description string

	CreatedAt time.Time
	UpdatedAt time.Time
}
