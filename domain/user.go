package domain

import "time"

// User is a registered account. Rows are write-once: there is no update or
// delete operation anywhere in the system.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	PasswordDigest string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}
