package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

const airTemperaturePath = "/v1/environment/air-temperature"

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Station struct {
	ID       string   `json:"id"`
	DeviceID string   `json:"device_id"`
	Name     string   `json:"name"`
	Location Location `json:"location"`
}

type Reading struct {
	StationID string  `json:"station_id"`
	Value     float64 `json:"value"`
}

type WeatherData struct {
	Timestamp string    `json:"timestamp"`
	Readings  []Reading `json:"readings"`
}

type StationTemperature struct {
	StationID   string   `json:"station_id"`
	StationName string   `json:"station_name"`
	Location    Location `json:"location"`
	Temperature float64  `json:"temperature"`
}

type TemperatureReport struct {
	Stations  []StationTemperature `json:"stations"`
	Timestamp string               `json:"timestamp"`
}

type StationReport struct {
	Station        Station  `json:"station"`
	CurrentReading *Reading `json:"current_reading"`
	Timestamp      string   `json:"timestamp"`
}

type airTemperature struct {
	Metadata struct {
		Stations []Station `json:"stations"`
	} `json:"metadata"`
	Items []WeatherData `json:"items"`
}

// WeatherService proxies the data.gov.sg air temperature feed.
type WeatherService struct {
	client  jsonGetter
	baseURL string
}

func NewWeatherService(client jsonGetter, baseURL string) *WeatherService {
	return &WeatherService{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *WeatherService) fetch(ctx context.Context) (*airTemperature, error) {
	var data airTemperature
	if err := s.client.GetJSON(ctx, s.baseURL+airTemperaturePath, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (s *WeatherService) fetchCurrent(ctx context.Context) (*airTemperature, error) {
	data, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(data.Items) == 0 {
		return nil, &common.UpstreamError{Upstream: "weather", StatusCode: http.StatusBadGateway, Body: "no readings"}
	}
	return data, nil
}

// Temperature joins the latest readings with station metadata. Readings
// from stations missing in the metadata are dropped.
func (s *WeatherService) Temperature(ctx context.Context) (*TemperatureReport, error) {
	data, err := s.fetchCurrent(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Station, len(data.Metadata.Stations))
	for _, st := range data.Metadata.Stations {
		if _, ok := byID[st.ID]; !ok {
			byID[st.ID] = st
		}
	}

	current := data.Items[0]
	report := &TemperatureReport{
		Stations:  make([]StationTemperature, 0, len(current.Readings)),
		Timestamp: current.Timestamp,
	}
	for _, r := range current.Readings {
		st, ok := byID[r.StationID]
		if !ok {
			continue
		}
		report.Stations = append(report.Stations, StationTemperature{
			StationID:   r.StationID,
			StationName: st.Name,
			Location:    st.Location,
			Temperature: r.Value,
		})
	}
	return report, nil
}

func (s *WeatherService) Stations(ctx context.Context) ([]Station, error) {
	data, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if data.Metadata.Stations == nil {
		return []Station{}, nil
	}
	return data.Metadata.Stations, nil
}

func (s *WeatherService) Current(ctx context.Context) (*WeatherData, error) {
	data, err := s.fetchCurrent(ctx)
	if err != nil {
		return nil, err
	}
	return &data.Items[0], nil
}

// Station reports one station with its latest reading, which may be nil.
func (s *WeatherService) Station(ctx context.Context, id string) (*StationReport, error) {
	data, err := s.fetchCurrent(ctx)
	if err != nil {
		return nil, err
	}

	report := &StationReport{Timestamp: data.Items[0].Timestamp}

	found := false
	for _, st := range data.Metadata.Stations {
		if st.ID == id {
			report.Station, found = st, true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: station %s", common.ErrorNotFound, id)
	}

	for _, r := range data.Items[0].Readings {
		if r.StationID == id {
			report.CurrentReading = &r
			break
		}
	}
	return report, nil
}
