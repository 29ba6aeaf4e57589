package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gridmind/gridmind/cache"
	"github.com/gridmind/gridmind/core"
)

const nominatimBaseURL = "https://nominatim.openstreetmap.org/search"

// Coordinates is a geocoded point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Geocoder resolves zip codes and city/state pairs through Nominatim.
// Results go through the shared response cache: geocoding output is
// effectively immutable, so the TTL is long (a week by default).
type Geocoder struct {
	client  *http.Client
	baseURL string
	cache   *cache.Cache
	ttl     time.Duration
	logger  core.Logger
}

// NewGeocoder creates a geocoder backed by the given cache.
func NewGeocoder(c *cache.Cache, ttl time.Duration, logger core.Logger) *Geocoder {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Geocoder{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: nominatimBaseURL,
		cache:   c,
		ttl:     ttl,
		logger:  logger,
	}
}

type nominatimResult struct {
	Lat     string `json:"lat"`
	Lon     string `json:"lon"`
	Address struct {
		Postcode string `json:"postcode"`
	} `json:"address"`
}

// ZipToCoordinates resolves a 5-digit zip to a point.
func (g *Geocoder) ZipToCoordinates(ctx context.Context, zip string) (*Coordinates, error) {
	key := cache.Key("geocode_zip", []interface{}{zip}, nil)
	v, err := g.cache.GetOrFetch(ctx, key, g.ttl, func(ctx context.Context) (interface{}, error) {
		results, err := g.search(ctx, url.Values{
			"postalcode": {zip},
			"country":    {"US"},
			"format":     {"json"},
			"limit":      {"1"},
		})
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return nil, fmt.Errorf("%w: no geocoding result for zip %s", core.ErrNoData, zip)
		}
		lat, err1 := strconv.ParseFloat(results[0].Lat, 64)
		lon, err2 := strconv.ParseFloat(results[0].Lon, 64)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("unparseable coordinates for zip %s", zip)
		}
		return &Coordinates{Lat: lat, Lon: lon}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Coordinates), nil
}

// CityStateToZip resolves a city/state pair to its primary zip code.
func (g *Geocoder) CityStateToZip(ctx context.Context, city, state string) (string, error) {
	if city == "" || state == "" {
		return "", fmt.Errorf("%w: city and state required", core.ErrNoData)
	}

	key := cache.Key("geocode_city_state", []interface{}{city, state}, nil)
	v, err := g.cache.GetOrFetch(ctx, key, g.ttl, func(ctx context.Context) (interface{}, error) {
		results, err := g.search(ctx, url.Values{
			"q":              {fmt.Sprintf("%s, %s, USA", city, state)},
			"country":        {"US"},
			"format":         {"json"},
			"limit":          {"1"},
			"addressdetails": {"1"},
		})
		if err != nil {
			return nil, err
		}
		if len(results) == 0 || results[0].Address.Postcode == "" {
			return nil, fmt.Errorf("%w: no zip for %s, %s", core.ErrNoData, city, state)
		}
		return results[0].Address.Postcode, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (g *Geocoder) search(ctx context.Context, params url.Values) ([]nominatimResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "gridmind/1.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: geocoding: %v", core.ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: geocoding returned %d", core.ErrRequestFailed, resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decoding geocoding response: %w", err)
	}
	return results, nil
}
