package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tickerlens-api/internal/config"
	"tickerlens-api/internal/persistence/viewcache"
	"tickerlens-api/pkg/confkit"
	"tickerlens-api/pkg/market"
)

func TestConfigSummaryLines(t *testing.T) {
	cfg := &config.Config{
		Env:          "dev",
		DefaultRange: "5d",
		ViewCache:    viewcache.Config{Backend: viewcache.BackendSQLite, TTL: time.Hour},
		Refresh:      config.RefreshConf{Enabled: true, Spec: "*/5 * * * *", Timezone: "America/New_York"},
		Market:       confkit.Section[market.Config]{File: "/srv/etc/market.yaml"},
	}
	lines := ConfigSummaryLines(cfg)
	assert.Contains(t, lines, "Environment: dev")
	assert.Contains(t, lines, "Default range: 5d")
	assert.Contains(t, lines, "View cache: sqlite (ttl 1h0m0s)")
	assert.Contains(t, lines, "Redis: not configured")
	assert.Contains(t, lines, `Scheduled refresh: "*/5 * * * *" (America/New_York)`)
	assert.Contains(t, lines, "Market config: /srv/etc/market.yaml")
	assert.Contains(t, lines, "News config: not configured")
}

func TestConfigSummaryNil(t *testing.T) {
	assert.Equal(t, []string{"Configuration: <nil>"}, ConfigSummaryLines(nil))
}
