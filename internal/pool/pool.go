// Package pool provides candidate service-request templates for offer
// generation. Selection is uniformly random; no repetition-avoidance
// is promised.
package pool

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	"github.com/example/roadside-dispatch/internal/models"
)

// ErrPoolEmpty means the provider currently has no candidates.
var ErrPoolEmpty = errors.New("candidate pool empty")

// CandidatePool hands out the next synthetic request template.
type CandidatePool interface {
	Next(ctx context.Context) (models.RequestTemplate, error)
}

// StaticPool selects uniformly at random from a fixed in-memory list.
type StaticPool struct {
	mu        sync.RWMutex
	templates []models.RequestTemplate
}

func NewStaticPool(templates []models.RequestTemplate) *StaticPool {
	return &StaticPool{templates: templates}
}

// DefaultPool holds a handful of plausible roadside calls around the
// city center so the binary runs without any backing services.
func DefaultPool() *StaticPool {
	return NewStaticPool([]models.RequestTemplate{
		{ServiceTypeID: "1", OriginAddress: "Harbor Bridge, northbound shoulder", Vehicle: "2014 Ford F-150", Problem: "Transmission failure, needs tow to garage", Origin: models.Coord{Lat: 40.7128, Lon: -74.0060}, Destination: models.Coord{Lat: 40.7306, Lon: -73.9866}},
		{ServiceTypeID: "2", OriginAddress: "5th Ave & Main St parking lot", Vehicle: "2019 Toyota Corolla", Problem: "Front left tire flat, has spare", Origin: models.Coord{Lat: 40.7411, Lon: -73.9897}, Destination: models.Coord{Lat: 40.7484, Lon: -73.9857}},
		{ServiceTypeID: "3", OriginAddress: "Riverside Mall, level 2 garage", Vehicle: "2016 Honda Civic", Problem: "Battery dead after lights left on", Origin: models.Coord{Lat: 40.7527, Lon: -73.9772}, Destination: models.Coord{Lat: 40.7580, Lon: -73.9855}},
		{ServiceTypeID: "4", OriginAddress: "Route 9 mile marker 23", Vehicle: "2021 Jeep Wrangler", Problem: "Out of fuel", Origin: models.Coord{Lat: 40.7061, Lon: -74.0087}, Destination: models.Coord{Lat: 40.7143, Lon: -74.0060}},
		{ServiceTypeID: "5", OriginAddress: "Greenfield Apartments visitor lot", Vehicle: "2018 Chevy Malibu", Problem: "Keys locked inside, engine running", Origin: models.Coord{Lat: 40.7282, Lon: -73.9942}, Destination: models.Coord{Lat: 40.7359, Lon: -73.9911}},
	})
}

func (p *StaticPool) Next(ctx context.Context) (models.RequestTemplate, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.templates) == 0 {
		return models.RequestTemplate{}, ErrPoolEmpty
	}
	return p.templates[rand.Intn(len(p.templates))], nil
}

// Add appends a candidate at runtime; used by feeds.
func (p *StaticPool) Add(t models.RequestTemplate) {
	p.mu.Lock()
	p.templates = append(p.templates, t)
	p.mu.Unlock()
}
