package user

import "time"

type User struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Password          string    `json:"-"` // never return
	Role              string    `json:"role"`
	Bio               string    `json:"bio,omitempty"`
	AvatarURL         string    `json:"avatar_url,omitempty"`
	IsActive          bool      `json:"is_active"`
	ServicesCompleted int       `json:"services_completed"`
	CreatedAt         time.Time `json:"created_at"`
}
