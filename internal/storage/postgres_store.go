package storage

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/example/ride-booking/internal/models"
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

func (p *PostgresStore) SaveRide(r *models.Ride) error {
	_, err := p.db.Exec(`INSERT INTO rides(id, rider_id, driver_id, vehicle_class, origin_lat, origin_lon, dest_lat, dest_lon, fare, payment_intent, status, created_at, updated_at) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		r.ID, r.RiderID, r.DriverID, string(r.Class), r.Origin.Lat, r.Origin.Lon, r.Destination.Lat, r.Destination.Lon, r.Fare, r.PaymentIntent, r.Status, r.CreatedAt, r.UpdatedAt)
	return err
}

func (p *PostgresStore) UpdateRide(r *models.Ride) error {
	_, err := p.db.Exec(`UPDATE rides SET driver_id=$1, fare=$2, payment_intent=$3, status=$4, updated_at=$5 WHERE id=$6`, r.DriverID, r.Fare, r.PaymentIntent, r.Status, time.Now(), r.ID)
	return err
}

func (p *PostgresStore) GetRide(id string) (*models.Ride, bool) {
	row := p.db.QueryRow(`SELECT id, rider_id, driver_id, vehicle_class, origin_lat, origin_lon, dest_lat, dest_lon, fare, payment_intent, status, created_at, updated_at FROM rides WHERE id=$1`, id)
	var r models.Ride
	var class string
	err := row.Scan(&r.ID, &r.RiderID, &r.DriverID, &class, &r.Origin.Lat, &r.Origin.Lon, &r.Destination.Lat, &r.Destination.Lon, &r.Fare, &r.PaymentIntent, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, false
	}
	r.Class = models.VehicleClass(class)
	return &r, true
}
