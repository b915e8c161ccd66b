// Package creds supplies the credential predicate used by the POP3 engine.
//
// The engine only ever needs a yes/no answer for a (username, password)
// pair; where the answer comes from is a deployment choice. The default is
// to accept everything, which matches lab installations where access is
// gated by the per-user journal windows instead.
package creds

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// Checker reports whether the supplied credentials are valid. It must be a
// pure function of its arguments.
type Checker interface {
	Check(username, password string) bool
}

// AllowAny accepts every credential pair.
type AllowAny struct{}

// Check always succeeds.
func (AllowAny) Check(username, password string) bool {
	return true
}

// Static compares against one fixed username and cleartext password.
type Static struct {
	Username string
	Password string
}

// Check compares both fields in constant time.
func (s Static) Check(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(s.Username), []byte(username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(s.Password), []byte(password)) == 1
	return userOK && passOK
}

// StaticHash compares against one fixed username and a bcrypt password
// hash.
type StaticHash struct {
	Username     string
	PasswordHash string
}

// Check verifies the password against the stored hash.
func (s StaticHash) Check(username, password string) bool {
	if subtle.ConstantTimeCompare([]byte(s.Username), []byte(username)) != 1 {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte(password)) == nil
}
