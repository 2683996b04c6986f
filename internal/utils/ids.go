package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateID returns a prefixed, upper-case identifier such as
// BKG3F2A9C1D7E4B. The random part comes from a version 4 UUID.
func GenerateID(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + strings.ToUpper(raw[:16])
}
