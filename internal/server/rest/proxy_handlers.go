package rest

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type tickerParams struct {
	Limit        int     `query:"limit" validate:"min=1,max=100"`
	MinVolume    float64 `query:"min_volume" validate:"gte=0"`
	MinPrice     float64 `query:"min_price" validate:"gte=0"`
	SymbolFilter string  `query:"symbol_filter"`
	SortBy       string  `query:"sort_by" validate:"oneof=volume lastPrice priceChangePercent"`
	SortOrder    string  `query:"sort_order" validate:"oneof=asc desc"`
	MinChange    float64 `query:"min_change" validate:"gte=-100,lte=100"`
	MaxChange    float64 `query:"max_change" validate:"gte=-100,lte=100"`
}

func parseTickerParams(q url.Values) (tickerParams, error) {
	d := services.DefaultTickerQuery()
	p := tickerParams{
		Limit:        d.Limit,
		MinVolume:    d.MinVolume,
		MinPrice:     d.MinPrice,
		SymbolFilter: q.Get("symbol_filter"),
		SortBy:       d.SortBy,
		SortOrder:    d.SortOrder,
		MinChange:    d.MinChange,
		MaxChange:    d.MaxChange,
	}
	if v := q.Get("sort_by"); v != "" {
		p.SortBy = v
	}
	if v := q.Get("sort_order"); v != "" {
		p.SortOrder = v
	}

	var errs []error
	intParam(q, "limit", &p.Limit, &errs)
	floatParam(q, "min_volume", &p.MinVolume, &errs)
	floatParam(q, "min_price", &p.MinPrice, &errs)
	floatParam(q, "min_change", &p.MinChange, &errs)
	floatParam(q, "max_change", &p.MaxChange, &errs)

	if len(errs) > 0 {
		return p, fmt.Errorf("%w: %w", common.ErrorValidation, errors.Join(errs...))
	}
	return p, nil
}

func intParam(q url.Values, name string, dst *int, errs *[]error) {
	if v := q.Get(name); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("%s must be an integer", name))
			return
		}
		*dst = n
	}
}

func floatParam(q url.Values, name string, dst *float64, errs *[]error) {
	if v := q.Get(name); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("%s must be a number", name))
			return
		}
		*dst = f
	}
}

func (s *Server) tickers(w http.ResponseWriter, r *http.Request) {
	p, err := parseTickerParams(r.URL.Query())
	if err == nil {
		err = s.check(p)
	}
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, validationDetail(err))
		return
	}

	list, err := s.deps.Crypto.Tickers(r.Context(), services.TickerQuery(p))
	if err != nil {
		s.failUpstream(w, r, err, "Binance API error")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) ticker(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	t, err := s.deps.Crypto.Ticker(r.Context(), symbol)
	if err != nil {
		s.symbolFail(w, r, err, symbol)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) chart(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	q := r.URL.Query()

	interval := q.Get("interval")
	if interval == "" {
		interval = "1h"
	}
	limit := 24
	var errs []error
	if intParam(q, "limit", &limit, &errs); len(errs) > 0 {
		writeDetail(w, http.StatusUnprocessableEntity, errs[0].Error())
		return
	}

	c, err := s.deps.Crypto.Chart(r.Context(), symbol, interval, limit)
	if err != nil {
		s.symbolFail(w, r, err, symbol)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) symbolFail(w http.ResponseWriter, r *http.Request, err error, symbol string) {
	if errors.Is(err, common.ErrorNotFound) {
		s.fail(w, r, err, http.StatusNotFound, fmt.Sprintf("Symbol %s not found", symbol))
		return
	}
	s.failUpstream(w, r, err, "Binance API error")
}

func (s *Server) temperature(w http.ResponseWriter, r *http.Request) {
	rep, err := s.deps.Weather.Temperature(r.Context())
	if err != nil {
		s.failUpstream(w, r, err, "Failed to fetch weather data")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) stations(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Weather.Stations(r.Context())
	if err != nil {
		s.failUpstream(w, r, err, "Failed to fetch weather data")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) currentWeather(w http.ResponseWriter, r *http.Request) {
	cur, err := s.deps.Weather.Current(r.Context())
	if err != nil {
		s.failUpstream(w, r, err, "Failed to fetch weather data")
		return
	}
	writeJSON(w, http.StatusOK, cur)
}

func (s *Server) station(w http.ResponseWriter, r *http.Request) {
	rep, err := s.deps.Weather.Station(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.fail(w, r, err, http.StatusNotFound, "Station not found")
			return
		}
		s.failUpstream(w, r, err, "Failed to fetch weather data")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
