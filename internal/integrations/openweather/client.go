package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"weather-chat/internal/domain"
)

const (
	defaultBaseURL = "https://api.openweathermap.org"
	defaultTimeout = 10 * time.Second
)

// currentResponse is the subset of the current weather payload we read.
// Pointers distinguish missing fields from zero values.
type currentResponse struct {
	Name *string `json:"name"`
	Main *struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description *string `json:"description"`
	} `json:"weather"`
}

// errorResponse is the body OpenWeather sends alongside non-2xx statuses,
// e.g. {"cod":"404","message":"city not found"}.
type errorResponse struct {
	Message string `json:"message"`
}

// UnavailableError reports that weather for City could not be produced.
// StatusCode is zero for transport and decoding failures.
type UnavailableError struct {
	City       string
	StatusCode int
	Reason     string
	Err        error
}

func (e *UnavailableError) Error() string {
	msg := fmt.Sprintf("openweather: weather unavailable for %q", e.City)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// UnavailableReason exposes the provider's reason text for error matching.
func (e *UnavailableError) UnavailableReason() string {
	return e.Reason
}

// Client fetches current conditions from the OpenWeather REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	icons      domain.IconTable
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithIcons replaces the description-to-glyph table.
func WithIcons(icons domain.IconTable) Option {
	return func(c *Client) {
		c.icons = icons
	}
}

func NewClient(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openweather: api key must not be empty")
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		icons:      domain.DefaultIcons(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func currentURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.HasSuffix(base, "/data/2.5") {
		return base + "/weather"
	}
	return base + "/data/2.5/weather"
}

// FetchWeather returns the current conditions for city. Every failure is an
// *UnavailableError.
func (c *Client) FetchWeather(ctx context.Context, city string) (domain.WeatherReading, error) {
	q := url.Values{}
	q.Set("q", city)
	q.Set("units", "metric")
	q.Set("lang", "en")
	q.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, currentURL(c.baseURL)+"?"+q.Encode(), nil)
	if err != nil {
		return domain.WeatherReading{}, &UnavailableError{City: city, Reason: "create request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WeatherReading{}, &UnavailableError{City: city, Reason: "request failed", Err: redactKey(err, c.apiKey)}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return domain.WeatherReading{}, &UnavailableError{
			City:       city,
			StatusCode: res.StatusCode,
			Reason:     statusReason(res.StatusCode, buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return domain.WeatherReading{}, &UnavailableError{City: city, Reason: "read response body", Err: err}
	}
	return c.decodeReading(city, buf)
}

func (c *Client) decodeReading(city string, raw []byte) (domain.WeatherReading, error) {
	var payload currentResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.WeatherReading{}, &UnavailableError{City: city, Reason: "decode response", Err: err}
	}
	switch {
	case payload.Name == nil:
		return domain.WeatherReading{}, &UnavailableError{City: city, Reason: "missing field name"}
	case payload.Main == nil || payload.Main.Temp == nil:
		return domain.WeatherReading{}, &UnavailableError{City: city, Reason: "missing field main.temp"}
	case payload.Main.Humidity == nil:
		return domain.WeatherReading{}, &UnavailableError{City: city, Reason: "missing field main.humidity"}
	case len(payload.Weather) == 0 || payload.Weather[0].Description == nil:
		return domain.WeatherReading{}, &UnavailableError{City: city, Reason: "missing field weather[0].description"}
	}

	description := *payload.Weather[0].Description
	return domain.WeatherReading{
		City:         *payload.Name,
		TemperatureC: RoundTemperature(*payload.Main.Temp),
		Description:  description,
		Icon:         c.icons.Lookup(description),
		Humidity:     int(math.Round(*payload.Main.Humidity)),
	}, nil
}

// RoundTemperature rounds half away from zero: 15.5 -> 16, -0.5 -> -1.
func RoundTemperature(celsius float64) int {
	return int(math.Round(celsius))
}

func statusReason(status int, body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil && strings.TrimSpace(e.Message) != "" {
		return strings.TrimSpace(e.Message)
	}
	if text := http.StatusText(status); text != "" {
		return strings.ToLower(text)
	}
	return "unexpected status"
}

// redactKey keeps the appid query value out of logged transport errors.
func redactKey(err error, key string) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	if key != "" && strings.Contains(err.Error(), key) {
		return errors.New(strings.ReplaceAll(err.Error(), key, "REDACTED"))
	}
	return err
}
