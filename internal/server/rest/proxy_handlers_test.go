package rest

import (
	"errors"
	"net/http"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickers_QueryParsing(t *testing.T) {
	t.Parallel()

	e := newTestEnv()
	target := "/crypto/tickers?limit=5&min_volume=1.5&symbol_filter=eth&sort_by=lastPrice&sort_order=asc&min_change=-5&max_change=5"
	rec := do(e.handler(), http.MethodGet, target, "", bearer(goodToken)...)
	require.Equal(t, http.StatusOK, rec.Code)

	want := services.TickerQuery{
		Limit:        5,
		MinVolume:    1.5,
		SymbolFilter: "eth",
		SortBy:       "lastPrice",
		SortOrder:    "asc",
		MinChange:    -5,
		MaxChange:    5,
	}
	if diff := cmp.Diff(want, e.crypto.gotQ); diff != "" {
		t.Fatalf("query mismatch (-want +got):\n%s", diff)
	}
}

func TestTickers_Defaults(t *testing.T) {
	t.Parallel()

	e := newTestEnv()
	rec := do(e.handler(), http.MethodGet, "/crypto/tickers", "", bearer(goodToken)...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.DefaultTickerQuery(), e.crypto.gotQ)
}

func TestTickers_OutOfRange(t *testing.T) {
	t.Parallel()

	for _, q := range []string{
		"limit=0", "limit=101", "limit=ten",
		"min_volume=-1", "min_price=-0.1",
		"min_change=-101", "max_change=100.5",
		"sort_by=price", "sort_order=up",
	} {
		e := newTestEnv()
		rec := do(e.handler(), http.MethodGet, "/crypto/tickers?"+q, "", bearer(goodToken)...)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, q)
	}
}

func TestTickers_UpstreamErrors(t *testing.T) {
	t.Parallel()

	e := newTestEnv()
	e.crypto.err = &common.UpstreamError{Upstream: "binance", StatusCode: http.StatusTooManyRequests, Body: "slow down"}
	rec := do(e.handler(), http.MethodGet, "/crypto/tickers", "", bearer(goodToken)...)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	e.crypto.err = errors.Join(common.ErrorUpstream, errors.New("timeout"))
	rec = do(e.handler(), http.MethodGet, "/crypto/tickers", "", bearer(goodToken)...)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTickerAndChart(t *testing.T) {
	t.Parallel()

	e := newTestEnv()
	e.crypto.chart = &services.Chart{Timestamps: []int64{1}, Prices: []float64{2.5}}
	h := e.handler()

	rec := do(h, http.MethodGet, "/crypto/ticker/btcusdt", "", bearer(goodToken)...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"symbol":"BTCUSDT"`)

	rec = do(h, http.MethodGet, "/crypto/chart/btcusdt", "", bearer(goodToken)...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"timestamps":[1],"prices":[2.5]}`, rec.Body.String())
	assert.Equal(t, "1h", e.crypto.gotInterval)
	assert.Equal(t, 24, e.crypto.gotLimit)

	rec = do(h, http.MethodGet, "/crypto/chart/btcusdt?interval=1d&limit=7", "", bearer(goodToken)...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1d", e.crypto.gotInterval)
	assert.Equal(t, 7, e.crypto.gotLimit)

	e.crypto.err = common.ErrorNotFound
	rec = do(h, http.MethodGet, "/crypto/ticker/nope", "", bearer(goodToken)...)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Symbol nope not found", detailOf(t, rec.Body.Bytes()))
}

func TestCrypto_RequiresToken(t *testing.T) {
	t.Parallel()

	e := newTestEnv()
	for _, p := range []string{"/crypto/tickers", "/crypto/ticker/x", "/crypto/chart/x"} {
		rec := do(e.handler(), http.MethodGet, p, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, p)
	}
}

func TestWeather(t *testing.T) {
	t.Parallel()

	e := newTestEnv()
	h := e.handler()

	rec := do(h, http.MethodGet, "/weather/temperature", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(h, http.MethodGet, "/weather/temperature", "", bearer(goodToken)...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"stations":[{"station_id":"S1","station_name":"","location":{"latitude":0,"longitude":0},"temperature":30}],"timestamp":"t"}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/weather/stations", "").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/weather/current", "").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/weather/station/S1", "").Code)

	rec = do(h, http.MethodGet, "/weather/station/S2", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Station not found", detailOf(t, rec.Body.Bytes()))
}

func TestWeather_UpstreamStatus(t *testing.T) {
	t.Parallel()

	e := newTestEnv()
	e.weather.err = &common.UpstreamError{Upstream: "weather", StatusCode: http.StatusBadGateway, Body: "no readings"}
	h := e.handler()

	rec := do(h, http.MethodGet, "/weather/current", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Failed to fetch weather data", detailOf(t, rec.Body.Bytes()))

	rec = do(h, http.MethodGet, "/weather/temperature", "", bearer(goodToken)...)
	require.Equal(t, http.StatusBadGateway, rec.Code)
}
