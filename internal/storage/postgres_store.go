package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/example/transfer-booking/internal/apperr"
	"github.com/example/transfer-booking/internal/models"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStoreFromDB(db), nil
}

// NewPostgresStoreFromDB wraps an already opened handle.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

func (p *PostgresStore) Close() error { return p.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS cities (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	country TEXT NOT NULL,
	seq BIGSERIAL
);
CREATE TABLE IF NOT EXISTS locations (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	city_id TEXT NOT NULL REFERENCES cities(id),
	latitude DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	images TEXT[] NOT NULL DEFAULT '{}',
	is_featured BOOLEAN NOT NULL DEFAULT FALSE,
	seq BIGSERIAL
);
CREATE TABLE IF NOT EXISTS providers (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	phone_number TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	seq BIGSERIAL
);
CREATE TABLE IF NOT EXISTS vehicles (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	capacity INTEGER NOT NULL CHECK (capacity > 0),
	luggage INTEGER NOT NULL DEFAULT 0,
	category TEXT NOT NULL,
	base_price DOUBLE PRECISION NOT NULL CHECK (base_price > 0),
	image TEXT NOT NULL DEFAULT '',
	provider_id TEXT NOT NULL REFERENCES providers(id),
	seq BIGSERIAL
);
CREATE TABLE IF NOT EXISTS routes (
	id TEXT PRIMARY KEY,
	origin_id TEXT NOT NULL REFERENCES locations(id),
	destination_id TEXT NOT NULL REFERENCES locations(id),
	distance DOUBLE PRECISION NOT NULL DEFAULT 0,
	estimated_time DOUBLE PRECISION NOT NULL DEFAULT 0,
	vehicle_ids TEXT[] NOT NULL DEFAULT '{}',
	seq BIGSERIAL,
	UNIQUE (origin_id, destination_id),
	CHECK (origin_id <> destination_id)
);
CREATE TABLE IF NOT EXISTS testimonials (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	content TEXT NOT NULL,
	rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
	created_at TIMESTAMPTZ NOT NULL,
	seq BIGSERIAL
);
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'user',
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	phone_number TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	loyalty_points INTEGER NOT NULL DEFAULT 0,
	two_factor_secret TEXT NOT NULL DEFAULT '',
	two_factor_enabled BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	last_login TIMESTAMPTZ,
	seq BIGSERIAL
);
CREATE TABLE IF NOT EXISTS reservations (
	id TEXT PRIMARY KEY,
	client_id TEXT NOT NULL,
	services JSONB NOT NULL,
	total_price DOUBLE PRECISION NOT NULL,
	payment_status TEXT NOT NULL,
	payment_reference TEXT NOT NULL DEFAULT '',
	reservation_code TEXT NOT NULL UNIQUE,
	reservation_password TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	seq BIGSERIAL
);
`

// Migrate creates the tables when they do not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation
}

func (p *PostgresStore) ListCities(ctx context.Context) ([]models.City, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, name, country FROM cities ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.City{}
	for rows.Next() {
		var c models.City
		if err := rows.Scan(&c.ID, &c.Name, &c.Country); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *PostgresStore) CreateCity(ctx context.Context, c models.City) (models.City, error) {
	c.ID = newID(c.ID)
	_, err := p.db.ExecContext(ctx, `INSERT INTO cities(id, name, country) VALUES($1,$2,$3)`, c.ID, c.Name, c.Country)
	if err != nil {
		return models.City{}, err
	}
	return c, nil
}

const locationColumns = `id, name, type, city_id, latitude, longitude, description, images, is_featured`

func scanLocation(sc interface{ Scan(...any) error }) (models.Location, error) {
	var l models.Location
	var images []string
	err := sc.Scan(&l.ID, &l.Name, &l.Type, &l.CityID, &l.Coordinates.Lat, &l.Coordinates.Lon, &l.Description, pq.Array(&images), &l.IsFeatured)
	l.Images = images
	return l, err
}

func (p *PostgresStore) ListLocations(ctx context.Context, f LocationFilter) ([]models.Location, error) {
	q := `SELECT ` + locationColumns + ` FROM locations WHERE ($1 = '' OR city_id = $1) AND ($2 = '' OR type = $2) AND (NOT $3 OR is_featured) ORDER BY seq`
	args := []any{f.CityID, string(f.Type), f.Featured}
	if f.Limit > 0 {
		q += ` LIMIT $4`
		args = append(args, f.Limit)
	}
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Location{}
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (p *PostgresStore) GetLocation(ctx context.Context, id string) (models.Location, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+locationColumns+` FROM locations WHERE id = $1`, id)
	l, err := scanLocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Location{}, apperr.NotFound("location")
	}
	return l, err
}

func (p *PostgresStore) CreateLocation(ctx context.Context, l models.Location) (models.Location, error) {
	l.ID = newID(l.ID)
	images := l.Images
	if images == nil {
		images = []string{}
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO locations(id, name, type, city_id, latitude, longitude, description, images, is_featured) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		l.ID, l.Name, string(l.Type), l.CityID, l.Coordinates.Lat, l.Coordinates.Lon, l.Description, pq.Array(images), l.IsFeatured)
	if isForeignKeyViolation(err) {
		return models.Location{}, apperr.NotFound("city")
	}
	if err != nil {
		return models.Location{}, err
	}
	return l, nil
}

func (p *PostgresStore) ListProviders(ctx context.Context) ([]models.Provider, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, name, email, phone_number, address, created_at FROM providers ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Provider{}
	for rows.Next() {
		var pr models.Provider
		if err := rows.Scan(&pr.ID, &pr.Name, &pr.Email, &pr.PhoneNumber, &pr.Address, &pr.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (p *PostgresStore) CreateProvider(ctx context.Context, pr models.Provider) (models.Provider, error) {
	pr.ID = newID(pr.ID)
	if pr.CreatedAt.IsZero() {
		pr.CreatedAt = p.now().UTC()
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO providers(id, name, email, phone_number, address, created_at) VALUES($1,$2,$3,$4,$5,$6)`,
		pr.ID, pr.Name, pr.Email, pr.PhoneNumber, pr.Address, pr.CreatedAt)
	if err != nil {
		return models.Provider{}, err
	}
	return pr, nil
}

const routeColumns = `id, origin_id, destination_id, distance, estimated_time, vehicle_ids`

func scanRoute(sc interface{ Scan(...any) error }) (models.Route, error) {
	var r models.Route
	var ids []string
	err := sc.Scan(&r.ID, &r.OriginID, &r.DestinationID, &r.Distance, &r.EstimatedTime, pq.Array(&ids))
	r.VehicleIDs = ids
	return r, err
}

func (p *PostgresStore) ListRoutes(ctx context.Context) ([]models.Route, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+routeColumns+` FROM routes ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Route{}
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PostgresStore) GetRoute(ctx context.Context, id string) (models.Route, error) {
	r, err := scanRoute(p.db.QueryRowContext(ctx, `SELECT `+routeColumns+` FROM routes WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Route{}, apperr.NotFound("route")
	}
	return r, err
}

func (p *PostgresStore) FindRoute(ctx context.Context, originID, destinationID string) (models.Route, error) {
	r, err := scanRoute(p.db.QueryRowContext(ctx,
		`SELECT `+routeColumns+` FROM routes WHERE origin_id = $1 AND destination_id = $2`, originID, destinationID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Route{}, apperr.NotFound("route")
	}
	return r, err
}

func (p *PostgresStore) CreateRoute(ctx context.Context, r models.Route) (models.Route, error) {
	if r.OriginID == r.DestinationID {
		return models.Route{}, apperr.Invalid("destination", "must differ from origin")
	}
	r.ID = newID(r.ID)
	ids := r.VehicleIDs
	if ids == nil {
		ids = []string{}
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO routes(id, origin_id, destination_id, distance, estimated_time, vehicle_ids) VALUES($1,$2,$3,$4,$5,$6)`,
		r.ID, r.OriginID, r.DestinationID, r.Distance, r.EstimatedTime, pq.Array(ids))
	if isUniqueViolation(err) {
		return models.Route{}, apperr.Conflict("route", "a route for this origin and destination already exists")
	}
	if isForeignKeyViolation(err) {
		return models.Route{}, apperr.NotFound("location")
	}
	if err != nil {
		return models.Route{}, err
	}
	return r, nil
}

const vehicleColumns = `id, name, type, capacity, luggage, category, base_price, image, provider_id`

func scanVehicle(sc interface{ Scan(...any) error }) (models.Vehicle, error) {
	var v models.Vehicle
	err := sc.Scan(&v.ID, &v.Name, &v.Type, &v.Capacity, &v.Luggage, &v.Category, &v.BasePrice, &v.Image, &v.ProviderID)
	return v, err
}

func (p *PostgresStore) queryVehicles(ctx context.Context, q string, args ...any) ([]models.Vehicle, error) {
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (p *PostgresStore) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	return p.queryVehicles(ctx, `SELECT `+vehicleColumns+` FROM vehicles ORDER BY seq`)
}

func (p *PostgresStore) GetVehicles(ctx context.Context, ids []string) ([]models.Vehicle, error) {
	if len(ids) == 0 {
		return []models.Vehicle{}, nil
	}
	found, err := p.queryVehicles(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Vehicle, len(found))
	for _, v := range found {
		byID[v.ID] = v
	}
	out := make([]models.Vehicle, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (p *PostgresStore) CreateVehicle(ctx context.Context, v models.Vehicle) (models.Vehicle, error) {
	v.ID = newID(v.ID)
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO vehicles(id, name, type, capacity, luggage, category, base_price, image, provider_id) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		v.ID, v.Name, string(v.Type), v.Capacity, v.Luggage, string(v.Category), v.BasePrice, v.Image, v.ProviderID)
	if isForeignKeyViolation(err) {
		return models.Vehicle{}, apperr.NotFound("provider")
	}
	if err != nil {
		return models.Vehicle{}, err
	}
	return v, nil
}

func (p *PostgresStore) ListTestimonials(ctx context.Context, limit int) ([]models.Testimonial, error) {
	q := `SELECT id, name, content, rating, created_at FROM testimonials ORDER BY seq DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Testimonial{}
	for rows.Next() {
		var t models.Testimonial
		if err := rows.Scan(&t.ID, &t.Name, &t.Content, &t.Rating, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *PostgresStore) CreateTestimonial(ctx context.Context, t models.Testimonial) (models.Testimonial, error) {
	t.ID = newID(t.ID)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = p.now().UTC()
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO testimonials(id, name, content, rating, created_at) VALUES($1,$2,$3,$4,$5)`,
		t.ID, t.Name, t.Content, t.Rating, t.CreatedAt)
	if err != nil {
		return models.Testimonial{}, err
	}
	return t, nil
}

const userColumns = `id, username, email, password_hash, role, first_name, last_name, phone_number, is_active, loyalty_points, two_factor_secret, two_factor_enabled, created_at, last_login`

func scanUser(sc interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	var lastLogin sql.NullTime
	err := sc.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.FirstName, &u.LastName, &u.PhoneNumber,
		&u.IsActive, &u.LoyaltyPoints, &u.TwoFactorSecret, &u.IsTwoFactorEnabled, &u.CreatedAt, &lastLogin)
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return u, err
}

func (p *PostgresStore) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	u.ID = newID(u.ID)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = p.now().UTC()
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO users(id, username, email, password_hash, role, first_name, last_name, phone_number, is_active, loyalty_points, two_factor_secret, two_factor_enabled, created_at) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		u.ID, u.Username, u.Email, u.PasswordHash, string(u.Role), u.FirstName, u.LastName, u.PhoneNumber,
		u.IsActive, u.LoyaltyPoints, u.TwoFactorSecret, u.IsTwoFactorEnabled, u.CreatedAt)
	if isUniqueViolation(err) {
		return models.User{}, apperr.Conflict("user", "email or username already registered")
	}
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

func (p *PostgresStore) GetUser(ctx context.Context, id string) (models.User, error) {
	u, err := scanUser(p.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.NotFound("user")
	}
	return u, err
}

func (p *PostgresStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	u, err := scanUser(p.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.NotFound("user")
	}
	return u, err
}

func (p *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// RedeemPoints decrements in a single conditional UPDATE so two concurrent
// redemptions cannot overdraw the balance.
func (p *PostgresStore) RedeemPoints(ctx context.Context, userID string, n int) (models.User, error) {
	u, err := scanUser(p.db.QueryRowContext(ctx,
		`UPDATE users SET loyalty_points = loyalty_points - $2 WHERE id = $1 AND loyalty_points >= $2 RETURNING `+userColumns,
		userID, n))
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.User{}, err
	}
	// no row: either the user is missing or the balance is short
	if _, err := p.GetUser(ctx, userID); err != nil {
		return models.User{}, err
	}
	return models.User{}, ErrInsufficientPoints
}

func (p *PostgresStore) TouchLogin(ctx context.Context, userID string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, userID, p.now().UTC())
	if err != nil {
		return err
	}
	return requireRow(res, "user")
}

func requireRow(res sql.Result, resource string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound(resource)
	}
	return nil
}

const reservationColumns = `id, client_id, services, total_price, payment_status, payment_reference, reservation_code, reservation_password, created_at, updated_at`

func scanReservation(sc interface{ Scan(...any) error }) (models.Reservation, error) {
	var r models.Reservation
	var services []byte
	err := sc.Scan(&r.ID, &r.ClientID, &services, &r.TotalPrice, &r.PaymentStatus, &r.PaymentReference,
		&r.ReservationCode, &r.PasswordHash, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return models.Reservation{}, err
	}
	if err := json.Unmarshal(services, &r.Services); err != nil {
		return models.Reservation{}, fmt.Errorf("decode services of %s: %w", r.ID, err)
	}
	return r, nil
}

func (p *PostgresStore) CreateReservation(ctx context.Context, r models.Reservation) (models.Reservation, error) {
	r.ID = newID(r.ID)
	now := p.now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	services, err := json.Marshal(r.Services)
	if err != nil {
		return models.Reservation{}, err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO reservations(`+reservationColumns+`) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		r.ID, r.ClientID, services, r.TotalPrice, string(r.PaymentStatus), r.PaymentReference,
		r.ReservationCode, r.PasswordHash, r.CreatedAt, r.UpdatedAt)
	if isUniqueViolation(err) {
		return models.Reservation{}, apperr.Conflict("reservation", "code already in use")
	}
	if err != nil {
		return models.Reservation{}, err
	}
	return r, nil
}

func (p *PostgresStore) GetReservationByCode(ctx context.Context, code string) (models.Reservation, error) {
	r, err := scanReservation(p.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE reservation_code = $1`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Reservation{}, apperr.NotFound("reservation")
	}
	return r, err
}

func (p *PostgresStore) ListReservations(ctx context.Context, clientID string) ([]models.Reservation, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE ($1 = '' OR client_id = $1) ORDER BY seq`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Reservation{}
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PostgresStore) UpdateReservation(ctx context.Context, r models.Reservation) error {
	services, err := json.Marshal(r.Services)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx,
		`UPDATE reservations SET services = $2, total_price = $3, payment_status = $4, payment_reference = $5, updated_at = $6 WHERE id = $1`,
		r.ID, services, r.TotalPrice, string(r.PaymentStatus), r.PaymentReference, p.now().UTC())
	if err != nil {
		return err
	}
	return requireRow(res, "reservation")
}
