package helpers

import (
	"time"

	"github.com/rs/zerolog/log"
)

// ParseDuration parses the duration configured under key. Empty, malformed or non-positive
// values fall back to def.
func ParseDuration(key, value string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err == nil && d > 0 {
		return d
	}
	log.Warn().Err(err).
		Str("key", key).
		Str("value", value).
		Dur("fallback", def).
		Msg("Unusable duration in config, using fallback")
	return def
}
