package route

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/example/roadside-dispatch/internal/models"
	"github.com/example/roadside-dispatch/internal/observability"
)

// ErrRouteUnavailable covers network failures, non-2xx responses, and
// unusable geometry from the routing provider. The dispatcher decides
// what to do with it; no retries happen here.
var ErrRouteUnavailable = errors.New("route unavailable")

// Cache is the lookup interface in front of the routing provider.
type Cache interface {
	Get(from, to models.Coord) (models.RouteResult, bool)
	Set(from, to models.Coord, r models.RouteResult)
}

// OSRMClient resolves routes against an OSRM HTTP server.
type OSRMClient struct {
	Endpoint string
	Client   *http.Client
	Cache    Cache // optional
}

func NewOSRMClient(endpoint string, timeout time.Duration) *OSRMClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OSRMClient{Endpoint: endpoint, Client: &http.Client{Timeout: timeout}}
}

// ResolveRoute queries OSRM /route between the two points and returns
// the full driving path with distance and duration.
func (o *OSRMClient) ResolveRoute(ctx context.Context, from, to models.Coord) (models.RouteResult, error) {
	if o.Cache != nil {
		if r, ok := o.Cache.Get(from, to); ok {
			return r, nil
		}
	}
	start := time.Now()
	res, err := o.fetch(ctx, from, to)
	observability.RouteLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.RouteFailures.Inc()
		return models.RouteResult{}, err
	}
	observability.RouteLookups.Inc()
	if o.Cache != nil {
		o.Cache.Set(from, to, res)
	}
	return res, nil
}

func (o *OSRMClient) fetch(ctx context.Context, from, to models.Coord) (models.RouteResult, error) {
	// OSRM route query: /route/v1/driving/{lon1},{lat1};{lon2},{lat2}
	url := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson",
		o.Endpoint, from.Lon, from.Lat, to.Lon, to.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.RouteResult{}, fmt.Errorf("%w: %v", ErrRouteUnavailable, err)
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return models.RouteResult{}, fmt.Errorf("%w: %v", ErrRouteUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.RouteResult{}, fmt.Errorf("%w: status %d", ErrRouteUnavailable, resp.StatusCode)
	}
	var out struct {
		Routes []struct {
			Geometry struct {
				Coordinates [][]float64 `json:"coordinates"`
			} `json:"geometry"`
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"routes"`
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.RouteResult{}, fmt.Errorf("%w: decode: %v", ErrRouteUnavailable, err)
	}
	if out.Code != "Ok" || len(out.Routes) == 0 {
		return models.RouteResult{}, fmt.Errorf("%w: code=%s", ErrRouteUnavailable, out.Code)
	}
	r := out.Routes[0]
	if len(r.Geometry.Coordinates) == 0 {
		return models.RouteResult{}, fmt.Errorf("%w: empty geometry", ErrRouteUnavailable)
	}
	path := make([]models.Coord, 0, len(r.Geometry.Coordinates))
	for _, c := range r.Geometry.Coordinates {
		if len(c) != 2 {
			return models.RouteResult{}, fmt.Errorf("%w: malformed geometry", ErrRouteUnavailable)
		}
		// OSRM emits [lon, lat] pairs.
		path = append(path, models.Coord{Lat: c[1], Lon: c[0]})
	}
	return models.RouteResult{Path: path, DistanceMeters: r.Distance, DurationSeconds: r.Duration}, nil
}
