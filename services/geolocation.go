package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Geolocator resolves a player's country code. Implementations may be slow;
// callers bound them with LookupWithTimeout.
type Geolocator interface {
	CountryCode(ctx context.Context, userID string) (string, error)
}

// GeoClient calls the geolocation service: GET {base}/v1/users/{id}/country.
type GeoClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

type countryResponse struct {
	CountryCode string `json:"country_code"`
}

func NewGeoClient(baseURL, token string) *GeoClient {
	return &GeoClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *GeoClient) CountryCode(ctx context.Context, userID string) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/users/%s/country", c.BaseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geolocation returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out countryResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	return strings.ToUpper(out.CountryCode), nil
}

// LookupWithTimeout races the lookup against a timer. timedOut is true when
// the timer won; the lookup goroutine is then abandoned and its result dropped.
func LookupWithTimeout(ctx context.Context, geo Geolocator, userID string, timeout time.Duration) (code string, timedOut bool, err error) {
	if geo == nil {
		return "", false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		code string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		code, err := geo.CountryCode(ctx, userID)
		done <- result{code, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-done:
		return r.code, false, r.err
	case <-timer.C:
		return "", true, nil
	case <-ctx.Done():
		return "", true, nil
	}
}
