package storage

import (
	"database/sql"
	"encoding/json"

	_ "github.com/lib/pq"

	"github.com/example/roadside-dispatch/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) SaveTrip(t *models.CompletedTrip) error {
	path, err := json.Marshal(t.Route.Path)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(`INSERT INTO trips(request_id, service_type_id, origin_address, origin_lat, origin_lon, dest_lat, dest_lon, route_path, distance_meters, duration_seconds, fare_cents, hour_bucket, completed_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		t.Request.ID, t.Request.ServiceTypeID, t.Request.OriginAddress,
		t.Request.Origin.Lat, t.Request.Origin.Lon, t.Request.Destination.Lat, t.Request.Destination.Lon,
		path, t.Route.DistanceMeters, t.Route.DurationSeconds, int64(t.Fare), t.HourBucket, t.Timestamp)
	return err
}

func (p *PostgresStore) Close() error { return p.db.Close() }
