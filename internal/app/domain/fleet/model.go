package fleet

import "time"

// Driver is a person who earns revenue under a user's account. IsSelf marks
// the account owner driving for themselves.
type Driver struct {
	ID        string
	UserID    string
	Name      string
	IsSelf    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Vehicle is a car, bike, or scooter used on trips. IsPrimary marks the one
// the user usually drives.
type Vehicle struct {
	ID        string
	UserID    string
	Name      string
	Make      string
	Model     string
	Year      int
	IsPrimary bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
