package route

import (
	"context"

	"github.com/example/roadside-dispatch/internal/models"
)

// Resolver joins geocoding and routing: free text in, routed path out.
type Resolver struct {
	Geocoder *Geocoder
	Routes   *OSRMClient
}

// ResolveAddress geocodes the destination and routes to it from the
// given origin. Geocoding misses surface as ErrAddressNotFound; any
// routing failure is ErrRouteUnavailable.
func (r *Resolver) ResolveAddress(ctx context.Context, origin models.Coord, address string) (models.RouteResult, error) {
	dest, err := r.Geocoder.Geocode(ctx, address)
	if err != nil {
		return models.RouteResult{}, err
	}
	return r.Routes.ResolveRoute(ctx, origin, dest)
}
