package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-client/internal/apperr"
	"github.com/bobby-s-dev/weather-client/internal/models"
)

const (
	DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5"
	DefaultGeocodingURL   = "https://api.openweathermap.org/geo/1.0"

	forecastDays = 5
	searchLimit  = 5
)

// OpenWeatherClient is stateless apart from its configuration.
type OpenWeatherClient struct {
	*BaseClient
	apiKey   string
	baseURL  string
	geoURL   string
	location *time.Location
}

type OpenWeatherOption func(*OpenWeatherClient)

// WithBaseURLs points the client at other data and geocoding endpoints.
func WithBaseURLs(baseURL, geoURL string) OpenWeatherOption {
	return func(c *OpenWeatherClient) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
		if geoURL != "" {
			c.geoURL = geoURL
		}
	}
}

// WithLocation sets the calendar used to split forecast days. Defaults to time.Local.
func WithLocation(loc *time.Location) OpenWeatherOption {
	return func(c *OpenWeatherClient) {
		if loc != nil {
			c.location = loc
		}
	}
}

type conditionEntry struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type mainBlock struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Pressure  int     `json:"pressure"`
	Humidity  int     `json:"humidity"`
}

type OpenWeatherCurrentResponse struct {
	Coord struct {
		Lon float64 `json:"lon"`
		Lat float64 `json:"lat"`
	} `json:"coord"`
	Weather []conditionEntry `json:"weather"`
	Main    *mainBlock       `json:"main"`
	Wind    struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
	Dt   int64  `json:"dt"`
	Name string `json:"name"`
}

type forecastItem struct {
	Dt      int64            `json:"dt"`
	Main    *mainBlock       `json:"main"`
	Weather []conditionEntry `json:"weather"`
	Clouds  struct {
		All int `json:"all"`
	} `json:"clouds"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Pop float64 `json:"pop"`
}

type OpenWeatherForecastResponse struct {
	List []forecastItem `json:"list"`
}

type GeocodingResult struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   string  `json:"state,omitempty"`
}

func NewOpenWeatherClient(apiKey string, config ClientConfig, logger *zap.Logger, opts ...OpenWeatherOption) *OpenWeatherClient {
	return newOpenWeatherClient(NewBaseClient("openweather", config, logger), apiKey, opts...)
}

func newOpenWeatherClient(base *BaseClient, apiKey string, opts ...OpenWeatherOption) *OpenWeatherClient {
	c := &OpenWeatherClient{
		BaseClient: base,
		apiKey:     apiKey,
		baseURL:    DefaultOpenWeatherURL,
		geoURL:     DefaultGeocodingURL,
		location:   time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *OpenWeatherClient) FetchCurrent(ctx context.Context, lat, lon float64, unit models.TemperatureUnit) (models.Weather, error) {
	req, err := c.coordinateRequest(ctx, "/weather", lat, lon, unit)
	if err != nil {
		return models.Weather{}, err
	}

	var response OpenWeatherCurrentResponse
	if err := c.getJSON(ctx, req, &response); err != nil {
		return models.Weather{}, fmt.Errorf("failed to fetch current weather: %w", err)
	}
	if response.Main == nil {
		return models.Weather{}, apperr.WithMessage(apperr.KindDecoding, "current weather payload has no main block", nil)
	}

	return models.Weather{
		Dt:        response.Dt,
		Temp:      response.Main.Temp,
		FeelsLike: response.Main.FeelsLike,
		TempMin:   response.Main.TempMin,
		TempMax:   response.Main.TempMax,
		Pressure:  response.Main.Pressure,
		Humidity:  response.Main.Humidity,
		Condition: firstCondition(response.Weather),
		WindSpeed: response.Wind.Speed,
		Clouds:    response.Clouds.All,
	}, nil
}

// Fetch5DayForecast reduces the 3-hourly feed to the first entry of each
// calendar day, at most five days.
func (c *OpenWeatherClient) Fetch5DayForecast(ctx context.Context, lat, lon float64, unit models.TemperatureUnit) ([]models.Weather, error) {
	req, err := c.coordinateRequest(ctx, "/forecast", lat, lon, unit)
	if err != nil {
		return nil, err
	}

	var response OpenWeatherForecastResponse
	if err := c.getJSON(ctx, req, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch forecast: %w", err)
	}

	points := make([]models.Weather, 0, len(response.List))
	for _, item := range response.List {
		if item.Main == nil {
			return nil, apperr.WithMessage(apperr.KindDecoding, "forecast entry has no main block", nil)
		}
		pop := item.Pop
		points = append(points, models.Weather{
			Dt:        item.Dt,
			Temp:      item.Main.Temp,
			FeelsLike: item.Main.FeelsLike,
			TempMin:   item.Main.TempMin,
			TempMax:   item.Main.TempMax,
			Pressure:  item.Main.Pressure,
			Humidity:  item.Main.Humidity,
			Condition: firstCondition(item.Weather),
			WindSpeed: item.Wind.Speed,
			Clouds:    item.Clouds.All,
			Pop:       &pop,
		})
	}

	daily := DailyForecast(points, c.location, forecastDays)
	c.logger.Debug("Forecast reduced",
		zap.Int("points", len(points)),
		zap.Int("days", len(daily)))

	return daily, nil
}

func (c *OpenWeatherClient) SearchCities(ctx context.Context, query string) ([]models.City, error) {
	u, err := url.Parse(c.geoURL + "/direct")
	if err != nil {
		return nil, apperr.New(apperr.KindInvalidRequest, err)
	}
	values := url.Values{}
	values.Set("q", query)
	values.Set("limit", strconv.Itoa(searchLimit))
	values.Set("appid", c.apiKey)
	u.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, apperr.New(apperr.KindInvalidRequest, err)
	}

	var results []GeocodingResult
	if err := c.getJSON(ctx, req, &results); err != nil {
		return nil, fmt.Errorf("failed to search cities: %w", err)
	}
	if len(results) == 0 {
		return nil, apperr.ErrNoResults
	}

	cities := make([]models.City, 0, len(results))
	for _, result := range results {
		cities = append(cities, models.NewCity(result.Name, result.Country, result.Lat, result.Lon))
	}
	return cities, nil
}

// DailyForecast keeps the first chronological point of each calendar day in
// loc, stopping once maxDays distinct days are collected.
func DailyForecast(points []models.Weather, loc *time.Location, maxDays int) []models.Weather {
	sorted := make([]models.Weather, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Dt < sorted[j].Dt })

	daily := make([]models.Weather, 0, maxDays)
	seen := make(map[time.Time]struct{}, maxDays)
	for _, point := range sorted {
		if len(daily) >= maxDays {
			break
		}
		t := point.Time().In(loc)
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		daily = append(daily, point)
	}
	return daily
}

func firstCondition(entries []conditionEntry) models.Condition {
	if len(entries) == 0 {
		return models.UnknownCondition
	}
	e := entries[0]
	return models.Condition{
		ID:          e.ID,
		Main:        e.Main,
		Description: e.Description,
		Icon:        e.Icon,
	}
}

func (c *OpenWeatherClient) coordinateRequest(ctx context.Context, path string, lat, lon float64, unit models.TemperatureUnit) (*http.Request, error) {
	if !(models.Coordinate{Lat: lat, Lon: lon}).Valid() {
		return nil, apperr.WithMessage(apperr.KindInvalidRequest,
			fmt.Sprintf("coordinates out of range: %v,%v", lat, lon), nil)
	}

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, apperr.New(apperr.KindInvalidRequest, err)
	}
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("units", string(unit))
	values.Set("appid", c.apiKey)
	u.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, apperr.New(apperr.KindInvalidRequest, err)
	}
	return req, nil
}

func (c *OpenWeatherClient) getJSON(ctx context.Context, req *http.Request, out interface{}) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return apperr.API(resp.StatusCode)
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return apperr.New(apperr.KindDecoding, err)
	}
	return nil
}
