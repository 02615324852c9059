// Package geocode resolves street addresses to ZIP codes and county FIPS
// codes using the Census Bureau geocoder, with an optional Postgres-backed
// cache in front of the API.
package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rentbench/fmr-cli/internal/db"
)

const (
	defaultBaseURL  = "https://geocoding.geo.census.gov"
	censusBenchmark = "Public_AR_Current"
	censusVintage   = "Current_Current"
)

// Client geocodes addresses via the Census geographies API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	pool       db.Pool // optional cache backend; nil disables caching
}

// New creates a geocoder client. pool may be nil to disable caching.
func New(baseURL string, pool db.Pool) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
		pool:       pool,
	}
}

// censusResponse is the JSON response from the Census geographies API.
type censusResponse struct {
	Result struct {
		AddressMatches []struct {
			MatchedAddress    string `json:"matchedAddress"`
			AddressComponents struct {
				Zip string `json:"zip"`
			} `json:"addressComponents"`
			Geographies struct {
				Counties []struct {
					GEOID string `json:"GEOID"`
				} `json:"Counties"`
			} `json:"geographies"`
		} `json:"addressMatches"`
	} `json:"result"`
}

// Locate resolves a one-line address to its ZIP and county FIPS. Either
// return value may be empty when the geocoder could not determine it; a
// full non-match returns both empty with a nil error.
func (c *Client) Locate(ctx context.Context, address string) (zip, countyFIPS string, err error) {
	key := cacheKey(address)
	if hit, ok := c.checkCache(ctx, key); ok {
		return hit.Zip, hit.CountyFIPS, nil
	}

	zip, countyFIPS, err = c.locateRemote(ctx, address)
	if err != nil {
		return "", "", err
	}

	c.storeCache(ctx, key, address, zip, countyFIPS)
	return zip, countyFIPS, nil
}

func (c *Client) locateRemote(ctx context.Context, address string) (string, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", "", eris.Wrap(err, "geocode: rate limit")
	}

	params := url.Values{
		"address":   {address},
		"benchmark": {censusBenchmark},
		"vintage":   {censusVintage},
		"format":    {"json"},
	}
	reqURL := c.baseURL + "/geocoder/geographies/onelineaddress?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", "", eris.Wrap(err, "geocode: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", eris.Wrap(err, "geocode: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", "", eris.Errorf("geocode: census returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", eris.Wrap(err, "geocode: read body")
	}

	var cr censusResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", "", eris.Wrap(err, "geocode: parse response")
	}

	if len(cr.Result.AddressMatches) == 0 {
		zap.L().Debug("geocode: no match", zap.String("address", address))
		return "", "", nil
	}

	match := cr.Result.AddressMatches[0]
	zip := match.AddressComponents.Zip
	var fips string
	if len(match.Geographies.Counties) > 0 {
		fips = match.Geographies.Counties[0].GEOID
	}
	return zip, fips, nil
}
