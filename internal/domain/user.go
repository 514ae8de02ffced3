package domain

// User is a read-only mirror of an identity owned by the external auth
// service. The core never creates or updates these rows and must tolerate
// the mirror lagging behind the identity service.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
