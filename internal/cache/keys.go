package cache

import (
	"strings"
	"time"
)

// Namespace is the key prefix for every tickerlens cache entry.
const Namespace = "tickerlens"

// DefaultViewTTL is the freshness window of a saved view.
const DefaultViewTTL = time.Hour

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

// ViewKey addresses the saved view of one ticker.
func ViewKey(ticker string) string {
	return formatKey("view", strings.ToUpper(ticker))
}

// LastViewKey holds the ticker of the most recently saved view.
func LastViewKey() string {
	return formatKey("view", "last")
}

// ViewTTL resolves the configured view freshness window.
func ViewTTL(configured time.Duration) time.Duration {
	if configured <= 0 {
		return DefaultViewTTL
	}
	return configured
}
