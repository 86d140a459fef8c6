package model

import "time"

// Club is the local entity an external organization maps to.
type Club struct {
	ID        int64
	Name      string
	City      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Team is the local entity an external group maps to.
type Team struct {
	ID          int64
	ClubID      int64
	Name        string
	SeasonLabel string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Player is the local entity an external contact maps to.
type Player struct {
	ID        int64
	TeamID    int64
	FirstName string
	LastName  string
	Email     string
	Gender    Gender
	BirthDate *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
