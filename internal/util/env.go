// Package util holds small helpers shared across rsvpd components.
package util

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// BoolEnv reads a boolean environment variable. It accepts everything
// strconv.ParseBool does plus yes/no and on/off; unset or unrecognized
// values yield the fallback.
func BoolEnv(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if v, err := strconv.ParseBool(raw); err == nil {
		return v
	}
	switch strings.ToLower(raw) {
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	slog.Warn("util.BoolEnv: unrecognized value, keeping default", "key", key, "value", raw, "default", fallback)
	return fallback
}
