package broker

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateClientID returns a server-assigned clientID for a CONNECT with
// an empty clientID field: a UUID with its dashes stripped, yielding the
// 32 lowercase hex characters the protocol director's CONNECT sequence
// (step 2) hands back in place of the client's empty identifier.
func GenerateClientID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
