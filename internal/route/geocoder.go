package route

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/roadside-dispatch/internal/models"
	"github.com/example/roadside-dispatch/internal/observability"
)

// ErrAddressNotFound means geocoding completed but matched nothing.
var ErrAddressNotFound = errors.New("address not found")

// Geocoder queries a Nominatim-style search endpoint for free-text
// address lookups. An empty result array is a valid "no results"
// response, not an error.
type Geocoder struct {
	Endpoint string
	Client   *http.Client
	Limit    int
}

func NewGeocoder(endpoint string, timeout time.Duration) *Geocoder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Geocoder{Endpoint: endpoint, Client: &http.Client{Timeout: timeout}, Limit: 5}
}

// Search returns ranked address suggestions for a partial query.
func (g *Geocoder) Search(ctx context.Context, query string) ([]models.AddressSuggestion, error) {
	u := fmt.Sprintf("%s/search?q=%s&format=jsonv2&limit=%d", g.Endpoint, url.QueryEscape(query), g.Limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("geocoder status %d", resp.StatusCode)
	}
	var out []struct {
		PlaceID     int64  `json:"place_id"`
		DisplayName string `json:"display_name"`
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("geocoder decode: %w", err)
	}
	observability.SuggestionQueries.Inc()

	results := make([]models.AddressSuggestion, 0, len(out))
	for _, p := range out {
		lat, err1 := strconv.ParseFloat(p.Lat, 64)
		lon, err2 := strconv.ParseFloat(p.Lon, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		title, subtitle := splitDisplayName(p.DisplayName)
		results = append(results, models.AddressSuggestion{
			ID:       strconv.FormatInt(p.PlaceID, 10),
			Title:    title,
			Subtitle: subtitle,
			Lat:      lat,
			Lon:      lon,
		})
	}
	return results, nil
}

// Geocode resolves a free-text address to its single best coordinate.
func (g *Geocoder) Geocode(ctx context.Context, query string) (models.Coord, error) {
	results, err := g.Search(ctx, query)
	if err != nil {
		return models.Coord{}, err
	}
	if len(results) == 0 {
		return models.Coord{}, fmt.Errorf("%w: %q", ErrAddressNotFound, query)
	}
	return models.Coord{Lat: results[0].Lat, Lon: results[0].Lon}, nil
}

func splitDisplayName(name string) (title, subtitle string) {
	if i := strings.Index(name, ","); i >= 0 {
		return strings.TrimSpace(name[:i]), strings.TrimSpace(name[i+1:])
	}
	return name, ""
}
