package config

import (
	"strings"

	"github.com/joho/godotenv"
)

const keyRefreshTime = "IMPORT_REFRESH_TIME"

// Live resolves settings that operators may change while the process runs.
// Each call re-reads the .env file, so edits are picked up on the next read.
type Live struct {
	path     string
	pinned   map[string]string
	defaults map[string]string
}

// NewLive builds a Live source reading from the given env file.
func NewLive(path string, defaults map[string]string) *Live {
	return &Live{path: path, pinned: map[string]string{}, defaults: defaults}
}

// RefreshTime returns the daily import time in HH:MM form.
func (l *Live) RefreshTime() string {
	return l.lookup(keyRefreshTime)
}

func (l *Live) lookup(key string) string {
	if l == nil {
		return ""
	}
	if value, ok := l.pinned[key]; ok {
		return strings.TrimSpace(value)
	}
	if values, err := godotenv.Read(l.path); err == nil {
		if value, ok := values[key]; ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return l.defaults[key]
}
