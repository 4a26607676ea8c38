package domain

import "time"

// User represents an account within the platform.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// FirstName returns the first word of the full name, used for greetings.
func (u User) FirstName() string {
	for i, r := range u.FullName {
		if r == ' ' {
			return u.FullName[:i]
		}
	}
	return u.FullName
}

// AuthTokens is returned after a successful login or registration.
type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	User         User   `json:"user"`
}

// Stats summarizes a user's activity for the dashboard.
type Stats struct {
	TotalGenerations int `json:"total_generations"`
	ImagesUploaded   int `json:"images_uploaded"`
}
