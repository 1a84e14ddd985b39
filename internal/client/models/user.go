package models

// User is the opaque identity record the backend returns on login or
// registration.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Session is the authenticated-identity-plus-credentials triple. User is
// non-nil exactly when AccessToken is present and not known-expired; that
// invariant is owned by the session store.
type Session struct {
	User         *User
	AccessToken  string
	RefreshToken string
}
