package model

import "time"

type User struct {
	ID         string    `json:"id"`
	CognitoSub string    `json:"cognito_sub"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Identity is the scope all task and category records belong to. The zero
// value is the guest identity: device-local, no credential.
type Identity struct {
	UserID string
}

func Guest() Identity {
	return Identity{}
}

func Authenticated(userID string) Identity {
	return Identity{UserID: userID}
}

func (i Identity) IsGuest() bool {
	return i.UserID == ""
}

func (i Identity) String() string {
	if i.IsGuest() {
		return "guest"
	}
	return i.UserID
}
