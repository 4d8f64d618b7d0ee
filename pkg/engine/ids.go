package engine

import "github.com/google/uuid"

// newShortID mints an opaque id short enough to stay compatible with
// popular model APIs' tool-call-id length limits.
func newShortID() string {
	return uuid.NewString()[:32]
}
