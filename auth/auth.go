// Package auth defines the broker's injected authentication/authorization
// capabilities and a password-file-backed Authenticator implementation.
package auth

// Authenticator validates a CONNECT's credentials.
type Authenticator interface {
	CheckValid(clientID, username string, password []byte) bool
}

// Authorizer decides per-topic read (subscribe) and write (publish)
// permission.
type Authorizer interface {
	CanRead(topicFilter, username, clientID string) bool
	CanWrite(topic, username, clientID string) bool
}

// AllowAll is a permissive Authorizer used when no authorization policy is
// configured; every read and write is permitted.
type AllowAll struct{}

func (AllowAll) CanRead(topicFilter, username, clientID string) bool  { return true }
func (AllowAll) CanWrite(topic, username, clientID string) bool       { return true }
