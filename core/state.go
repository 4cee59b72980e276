package core

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidState = errors.New("unknown or expired login state")

// StateTTL bounds how long a login attempt may sit between the redirect to
// the provider and the callback.
const StateTTL = 10 * time.Minute

const stateBytes = 32

// GenerateState returns a URL-safe random state with 256 bits of entropy.
func GenerateState() (string, error) {
	buf := make([]byte, stateBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
