// Package planning holds budgets and goals, the user-owned planning
// entities counted against plan limits.
package planning

import "time"

// Budget caps spending for a category over a recurring period.
type Budget struct {
	ID        string
	UserID    string
	Name      string
	Amount    float64
	Period    string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Goal is a savings or earnings target.
type Goal struct {
	ID        string
	UserID    string
	Name      string
	Target    float64
	Deadline  time.Time
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
