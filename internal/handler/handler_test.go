package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeromicro/go-zero/rest/httpx"

	"tickerlens-api/internal/svc"
	"tickerlens-api/internal/types"
	"tickerlens-api/pkg/lookup"
	"tickerlens-api/pkg/market"
)

func init() {
	httpx.SetErrorHandlerCtx(ErrorHandler)
}

type staticGateway struct{}

func (staticGateway) Quote(_ context.Context, ticker string) (market.Quote, error) {
	if ticker != "AAPL" {
		return market.Quote{}, market.ErrInvalidTicker
	}
	return market.Quote{Symbol: ticker, Price: 190, PreviousClose: 188}, nil
}

func (staticGateway) Metadata(_ context.Context, ticker string) (market.Metadata, error) {
	return market.Metadata{Name: "Apple Inc."}, nil
}

func (staticGateway) Series(_ context.Context, ticker string, rng market.Range) (market.Series, error) {
	at := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	return market.Series{Ticker: ticker, Range: rng, Points: []market.PricePoint{
		{Timestamp: at, Price: 189, IsRegularSession: true},
		{Timestamp: at.Add(5 * time.Minute), Price: 190, IsRegularSession: true},
	}}, nil
}

func (staticGateway) News(context.Context, string) ([]market.NewsItem, error) { return nil, nil }

func (staticGateway) Narrative(context.Context, string) (string, error) { return "", nil }

func (staticGateway) Peers(context.Context, string, string) ([]string, error) { return nil, nil }

func (staticGateway) AnalystRatings(context.Context, string) (market.AnalystRatings, error) {
	return market.AnalystRatings{}, nil
}

func newServiceContext(t *testing.T) *svc.ServiceContext {
	t.Helper()
	orch, err := lookup.New(staticGateway{})
	require.NoError(t, err)
	return &svc.ServiceContext{Orchestrator: orch}
}

func do(h http.HandlerFunc, method, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, "/", nil)
	} else {
		req = httptest.NewRequest(method, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestLookupHandler(t *testing.T) {
	svcCtx := newServiceContext(t)

	rec := do(LookupHandler(svcCtx), http.MethodPost, `{"ticker":"aapl"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp types.LookupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "AAPL", resp.View.Ticker)
	assert.Equal(t, "Apple Inc.", resp.View.Metadata.Name)
	require.NotNil(t, resp.Latest)
	assert.Equal(t, 188.0, resp.Latest.Reference)
}

func TestLookupHandlerUnknownTicker(t *testing.T) {
	rec := do(LookupHandler(newServiceContext(t)), http.MethodPost, `{"ticker":"ZZZZ"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusNotFound, body.Code)
	assert.Contains(t, body.Message, "ZZZZ")
}

func TestLookupHandlerMissingTicker(t *testing.T) {
	rec := do(LookupHandler(newServiceContext(t)), http.MethodPost, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRangeHandlerStatuses(t *testing.T) {
	svcCtx := newServiceContext(t)

	rec := do(SetRangeHandler(svcCtx), http.MethodPost, `{"range":"1y"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(LookupHandler(svcCtx), http.MethodPost, `{"ticker":"AAPL"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(SetRangeHandler(svcCtx), http.MethodPost, `{"range":"2w"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(SetRangeHandler(svcCtx), http.MethodPost, `{"range":"1y"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp types.ViewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, market.Range1Y, resp.View.Range)
}

func TestViewHandlers(t *testing.T) {
	svcCtx := newServiceContext(t)

	rec := do(GetViewHandler(svcCtx), http.MethodGet, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(SegmentsHandler(svcCtx), http.MethodGet, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = do(PerformanceHandler(svcCtx), http.MethodGet, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.Equal(t, http.StatusOK, do(LookupHandler(svcCtx), http.MethodPost, `{"ticker":"AAPL"}`).Code)

	rec = do(SegmentsHandler(svcCtx), http.MethodGet, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var seg types.SegmentsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &seg))
	assert.Equal(t, "AAPL", seg.Ticker)
	assert.Equal(t, 0, seg.OpenIndex)

	rec = do(HoverHandler(svcCtx), http.MethodPost, `{"timestamp":1709303400000,"price":187}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var hover types.HoverResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hover))
	assert.True(t, hover.Applied)
	require.NotNil(t, hover.Hovered)
	assert.InDelta(t, -1.0, hover.Hovered.Change, 1e-9)
}

func TestRestoreHandlerWithoutCache(t *testing.T) {
	rec := do(RestoreHandler(newServiceContext(t)), http.MethodPost, `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp types.RestoreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Restored)
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("lookup X: %w", market.ErrInvalidTicker), http.StatusNotFound},
		{fmt.Errorf("lookup: %w", market.ErrInvalidRange), http.StatusBadRequest},
		{lookup.ErrNotReady, http.StatusConflict},
		{BadRequest(errors.New("field \"ticker\" is not set")), http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusOf(tc.err), tc.err.Error())
	}
}
