package domain

// Caller is the verified identity attached to a request by the auth middleware.
// A nil *Caller means the request is unauthenticated.
type Caller struct {
	ID   int64
	Role UserRole
}

func (c *Caller) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}
