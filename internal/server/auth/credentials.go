// Package auth holds the static admin identity and file password hashing.
package auth

import (
	"crypto/subtle"
	"errors"
)

// Credentials is the admin identity loaded once at startup. It is never
// mutated after NewCredentials returns.
type Credentials struct {
	username []byte
	password []byte
}

// NewCredentials returns an error when either field is empty.
func NewCredentials(username, password string) (*Credentials, error) {
	if username == "" || password == "" {
		return nil, errors.New("admin username and password are required")
	}
	return &Credentials{
		username: []byte(username),
		password: []byte(password),
	}, nil
}

// VerifyAdmin compares both fields in constant time. Both comparisons always
// run so the timing does not reveal which field was wrong.
func (c *Credentials) VerifyAdmin(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), c.username)
	passOK := subtle.ConstantTimeCompare([]byte(password), c.password)
	return userOK&passOK == 1
}

// Username is exposed for log fields; the password never is.
func (c *Credentials) Username() string {
	return string(c.username)
}
