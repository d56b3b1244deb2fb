package tool

import (
	"github.com/google/uuid"
)

func GenerateRandomUUID() string {
	return uuid.New().String()
}

// GenerateShortID returns the first 8 hex chars of a random uuid, used for temp file names on the device.
func GenerateShortID() string {
	return GenerateRandomUUID()[:8]
}
