package model

import "time"

// User represents an account as stored in the `users` table.  Students and
// administrators share the table and are told apart by IsAdmin.
//
// Fields:
//
//	ID            – primary key identifier of the user.
//	Email         – unique, lower-cased email address.
//	PasswordHash  – bcrypt hashed password.
//	FullName      – display name (optional).
//	StudentNumber – institutional student number (optional).
//	IsAdmin       – whether the user may approve and deny reservations.
//	CreatedAt     – timestamp of creation.
type User struct {
	ID            uint64    // users.id
	Email         string    // users.email
	PasswordHash  string    // users.password_hash
	FullName      string    // users.full_name
	StudentNumber string    // users.student_number
	IsAdmin       bool      // users.is_admin
	CreatedAt     time.Time // users.created_at_ms
}

// Role returns the token role claim for the user.
func (u User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleStudent
}

// Actor returns the domain actor for the user.
func (u User) Actor() Actor { return Actor{UserID: u.ID, IsAdmin: u.IsAdmin} }

// Role names carried in the JWT "role" claim.
const (
	RoleAdmin   = "ADMIN"
	RoleStudent = "STUDENT"
)

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token value is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at_ms
	RevokedAt *time.Time // refresh_tokens.revoked_at_ms (nullable)
}
