// Package user defines the user model used throughout the application,
// particularly for authentication and ownership checks on playlists
// and favorites.
package user

// User represents a registered account.
type User struct {
	// ID is the unique identifier of the user.
	ID int64

	// Username is unique across all users.
	Username string

	// PasswordHash is the bcrypt hash of the user's password.
	// The plain password is never stored.
	PasswordHash string

	// IsAdmin marks accounts allowed to delete songs from the catalog.
	IsAdmin bool
}
