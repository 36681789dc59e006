package yahoo

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/dnaeon/go-vcr/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickerlens-api/pkg/market"
)

// Replays a recorded chart call. Skips when the cassette is absent and
// RECORD_CASSETTES != 1.
func TestProvider_Series_Recorded(t *testing.T) {
	cassette := filepath.Join("testdata", "cassettes", "yahoo_chart")
	if _, err := os.Stat(cassette + ".yaml"); os.IsNotExist(err) {
		if os.Getenv("RECORD_CASSETTES") != "1" {
			t.Skipf("cassette missing; set RECORD_CASSETTES=1 to record: %s.yaml", cassette)
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(cassette), 0o755))
	}

	r, err := recorder.New(cassette)
	require.NoError(t, err)
	defer func() { _ = r.Stop() }()

	provider := NewProvider(WithClientOptions(WithHTTPClient(&http.Client{Transport: r})))
	series, err := provider.Series(context.Background(), "AAPL", market.Range1M)
	require.NoError(t, err)
	assert.NotEmpty(t, series.Points)
	assert.Equal(t, "AAPL", series.Ticker)
}
