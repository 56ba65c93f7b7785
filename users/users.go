package users

import (
	"encoding/json"
	"time"

	"github.com/jrsteele09/resume-client/internal/utils"
)

// User is the identity and profile summary returned by the API. The client never
// creates one except as a display default.
type User struct {
	ID               string    `json:"id"`              // Unique identifier for the user
	Email            string    `json:"email"`           // User's email address
	FullName         string    `json:"full_name"`       // Display name
	Phone            string    `json:"phone,omitempty"` // Optional contact details
	Location         string    `json:"location,omitempty"`
	Website          string    `json:"website,omitempty"`
	LinkedIn         string    `json:"linkedin,omitempty"`
	GitHub           string    `json:"github,omitempty"`
	Summary          string    `json:"summary,omitempty"` // Professional summary
	IsPremium        bool      `json:"is_premium"`        // Premium subscription flag
	CreditsRemaining int       `json:"credits_remaining"` // Generations left on the free tier
	CreatedAt        time.Time `json:"created_at,omitzero"`
	UpdatedAt        time.Time `json:"updated_at,omitzero"`
}

// UnmarshalJSON accepts the backend's free_generations_left as the credit counter
// when credits_remaining is not sent.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	aux := struct {
		*plain
		CreditsRemaining    *int `json:"credits_remaining"`
		FreeGenerationsLeft *int `json:"free_generations_left"`
	}{plain: (*plain)(u)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	u.CreditsRemaining = utils.Coalesce(aux.CreditsRemaining, aux.FreeGenerationsLeft)
	return nil
}

// DisplayName returns the best available label for the user.
func (u *User) DisplayName() string {
	if u == nil {
		return "User"
	}
	if u.FullName != "" {
		return u.FullName
	}
	if u.Email != "" {
		return u.Email
	}
	return "User"
}

// HasCredits reports whether the user can run another generation.
func (u *User) HasCredits() bool {
	return u != nil && (u.IsPremium || u.CreditsRemaining > 0)
}
