package marketplace

import "time"

// Game is a catalog entry offerings hang off
type Game struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Genre       string    `json:"genre,omitempty"`
	Platform    string    `json:"platform,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Offering is a service listed by an employee. Price is in cents.
type Offering struct {
	ID          string    `json:"id"`
	EmployeeID  string    `json:"employee_id"`
	GameID      string    `json:"game_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Price       int64     `json:"price"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// RequestView is the API shape of a service request
type RequestView struct {
	ID               string     `json:"id"`
	OfferingID       string     `json:"offering_id"`
	RequesterID      string     `json:"requester_id"`
	EmployeeID       string     `json:"employee_id"`
	Details          string     `json:"details,omitempty"`
	Amount           int64      `json:"amount"`
	Status           string     `json:"status"`
	EmployeeResponse string     `json:"employee_response,omitempty"`
	AcceptedAt       *time.Time `json:"accepted_at,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
