package models

// User is an account as returned by the user endpoints. Token is only set for the
// authenticated user.
type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Pic   string `json:"pic,omitempty"`
	Token string `json:"token,omitempty"`
}
