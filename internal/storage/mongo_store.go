package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/example/transfer-booking/internal/apperr"
	"github.com/example/transfer-booking/internal/models"
)

const (
	colCities       = "cities"
	colLocations    = "locations"
	colProviders    = "providers"
	colRoutes       = "routes"
	colVehicles     = "vehicles"
	colTestimonials = "testimonials"
	colUsers        = "users"
	colReservations = "reservations"
)

// MongoStore keeps one document per record, ids stored as string _id values.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return NewMongoStoreFromDatabase(client, client.Database(database)), nil
}

func NewMongoStoreFromDatabase(client *mongo.Client, db *mongo.Database) *MongoStore {
	return &MongoStore{client: client, db: db, now: time.Now}
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// EnsureIndexes creates the unique indexes the Postgres schema enforces with
// constraints.
func (m *MongoStore) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		colRoutes: {
			{Keys: bson.D{{Key: "origin", Value: 1}, {Key: "destination", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colLocations: {
			{Keys: bson.D{{Key: "city", Value: 1}}},
			{Keys: bson.D{{Key: "isFeatured", Value: 1}}},
		},
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colReservations: {
			{Keys: bson.D{{Key: "reservationCode", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "client", Value: 1}}},
		},
	}
	for coll, idx := range specs {
		if _, err := m.db.Collection(coll).Indexes().CreateMany(ctx, idx, options.CreateIndexes()); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter any, resource string) (T, error) {
	var out T
	err := coll.FindOne(ctx, filter).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return out, apperr.NotFound(resource)
	}
	return out, err
}

// insertionOrder sorts by record order, which follows inserts. It bypasses
// indexes, which is fine at catalog size.
var insertionOrder = bson.D{{Key: "$natural", Value: 1}}

// requireDoc returns apperr.NotFound(resource) when no document in coll has _id id.
func (m *MongoStore) requireDoc(ctx context.Context, coll, id, resource string) error {
	err := m.db.Collection(coll).FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound(resource)
	}
	return err
}

func (m *MongoStore) insert(ctx context.Context, coll string, doc any) error {
	_, err := m.db.Collection(coll).InsertOne(ctx, doc)
	return err
}

func (m *MongoStore) ListCities(ctx context.Context) ([]models.City, error) {
	return findAll[models.City](ctx, m.db.Collection(colCities), bson.D{}, options.Find().SetSort(insertionOrder))
}

func (m *MongoStore) CreateCity(ctx context.Context, c models.City) (models.City, error) {
	c.ID = newID(c.ID)
	return c, m.insert(ctx, colCities, c)
}

func (m *MongoStore) ListLocations(ctx context.Context, f LocationFilter) ([]models.Location, error) {
	filter := bson.M{}
	if f.CityID != "" {
		filter["city"] = f.CityID
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.Featured {
		filter["isFeatured"] = true
	}
	opts := options.Find().SetSort(insertionOrder)
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	return findAll[models.Location](ctx, m.db.Collection(colLocations), filter, opts)
}

func (m *MongoStore) GetLocation(ctx context.Context, id string) (models.Location, error) {
	return findOne[models.Location](ctx, m.db.Collection(colLocations), bson.M{"_id": id}, "location")
}

func (m *MongoStore) CreateLocation(ctx context.Context, l models.Location) (models.Location, error) {
	if err := m.requireDoc(ctx, colCities, l.CityID, "city"); err != nil {
		return models.Location{}, err
	}
	l.ID = newID(l.ID)
	return l, m.insert(ctx, colLocations, l)
}

func (m *MongoStore) ListProviders(ctx context.Context) ([]models.Provider, error) {
	return findAll[models.Provider](ctx, m.db.Collection(colProviders), bson.D{}, options.Find().SetSort(insertionOrder))
}

func (m *MongoStore) CreateProvider(ctx context.Context, p models.Provider) (models.Provider, error) {
	p.ID = newID(p.ID)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = m.now().UTC()
	}
	return p, m.insert(ctx, colProviders, p)
}

func (m *MongoStore) ListRoutes(ctx context.Context) ([]models.Route, error) {
	return findAll[models.Route](ctx, m.db.Collection(colRoutes), bson.D{}, options.Find().SetSort(insertionOrder))
}

func (m *MongoStore) GetRoute(ctx context.Context, id string) (models.Route, error) {
	return findOne[models.Route](ctx, m.db.Collection(colRoutes), bson.M{"_id": id}, "route")
}

func (m *MongoStore) FindRoute(ctx context.Context, originID, destinationID string) (models.Route, error) {
	return findOne[models.Route](ctx, m.db.Collection(colRoutes), bson.M{"origin": originID, "destination": destinationID}, "route")
}

func (m *MongoStore) CreateRoute(ctx context.Context, r models.Route) (models.Route, error) {
	if r.OriginID == r.DestinationID {
		return models.Route{}, apperr.Invalid("destination", "must differ from origin")
	}
	for _, id := range []string{r.OriginID, r.DestinationID} {
		if err := m.requireDoc(ctx, colLocations, id, "location"); err != nil {
			return models.Route{}, err
		}
	}
	r.ID = newID(r.ID)
	if r.VehicleIDs == nil {
		r.VehicleIDs = []string{}
	}
	err := m.insert(ctx, colRoutes, r)
	if mongo.IsDuplicateKeyError(err) {
		return models.Route{}, apperr.Conflict("route", "a route for this origin and destination already exists")
	}
	if err != nil {
		return models.Route{}, err
	}
	return r, nil
}

func (m *MongoStore) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	return findAll[models.Vehicle](ctx, m.db.Collection(colVehicles), bson.D{}, options.Find().SetSort(insertionOrder))
}

func (m *MongoStore) GetVehicles(ctx context.Context, ids []string) ([]models.Vehicle, error) {
	if len(ids) == 0 {
		return []models.Vehicle{}, nil
	}
	found, err := findAll[models.Vehicle](ctx, m.db.Collection(colVehicles), bson.M{"_id": bson.M{"$in": ids}})
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

func (m *MongoStore) CreateVehicle(ctx context.Context, v models.Vehicle) (models.Vehicle, error) {
	if err := m.requireDoc(ctx, colProviders, v.ProviderID, "provider"); err != nil {
		return models.Vehicle{}, err
	}
	v.ID = newID(v.ID)
	return v, m.insert(ctx, colVehicles, v)
}

func (m *MongoStore) ListTestimonials(ctx context.Context, limit int) ([]models.Testimonial, error) {
	opts := options.Find().SetSort(bson.D{{Key: "$natural", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return findAll[models.Testimonial](ctx, m.db.Collection(colTestimonials), bson.D{}, opts)
}

func (m *MongoStore) CreateTestimonial(ctx context.Context, t models.Testimonial) (models.Testimonial, error) {
	t.ID = newID(t.ID)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = m.now().UTC()
	}
	return t, m.insert(ctx, colTestimonials, t)
}

func (m *MongoStore) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	u.ID = newID(u.ID)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = m.now().UTC()
	}
	err := m.insert(ctx, colUsers, u)
	if mongo.IsDuplicateKeyError(err) {
		return models.User{}, apperr.Conflict("user", "email or username already registered")
	}
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

func (m *MongoStore) GetUser(ctx context.Context, id string) (models.User, error) {
	return findOne[models.User](ctx, m.db.Collection(colUsers), bson.M{"_id": id}, "user")
}

func (m *MongoStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return findOne[models.User](ctx, m.db.Collection(colUsers), bson.M{"email": email}, "user")
}

func (m *MongoStore) ListUsers(ctx context.Context) ([]models.User, error) {
	return findAll[models.User](ctx, m.db.Collection(colUsers), bson.D{}, options.Find().SetSort(insertionOrder))
}

func (m *MongoStore) RedeemPoints(ctx context.Context, userID string, n int) (models.User, error) {
	var u models.User
	err := m.db.Collection(colUsers).FindOneAndUpdate(ctx,
		bson.M{"_id": userID, "loyaltyPoints": bson.M{"$gte": n}},
		bson.M{"$inc": bson.M{"loyaltyPoints": -n}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, err
	}
	if _, err := m.GetUser(ctx, userID); err != nil {
		return models.User{}, err
	}
	return models.User{}, ErrInsufficientPoints
}

func (m *MongoStore) TouchLogin(ctx context.Context, userID string) error {
	res, err := m.db.Collection(colUsers).UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{"lastLogin": m.now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("user")
	}
	return nil
}

func (m *MongoStore) CreateReservation(ctx context.Context, r models.Reservation) (models.Reservation, error) {
	r.ID = newID(r.ID)
	now := m.now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	err := m.insert(ctx, colReservations, r)
	if mongo.IsDuplicateKeyError(err) {
		return models.Reservation{}, apperr.Conflict("reservation", "code already in use")
	}
	if err != nil {
		return models.Reservation{}, err
	}
	return r, nil
}

func (m *MongoStore) GetReservationByCode(ctx context.Context, code string) (models.Reservation, error) {
	return findOne[models.Reservation](ctx, m.db.Collection(colReservations), bson.M{"reservationCode": code}, "reservation")
}

func (m *MongoStore) ListReservations(ctx context.Context, clientID string) ([]models.Reservation, error) {
	filter := bson.M{}
	if clientID != "" {
		filter["client"] = clientID
	}
	return findAll[models.Reservation](ctx, m.db.Collection(colReservations), filter, options.Find().SetSort(insertionOrder))
}

func (m *MongoStore) UpdateReservation(ctx context.Context, r models.Reservation) error {
	res, err := m.db.Collection(colReservations).UpdateOne(ctx, bson.M{"_id": r.ID}, bson.M{"$set": bson.M{
		"services":         r.Services,
		"totalPrice":       r.TotalPrice,
		"paymentStatus":    r.PaymentStatus,
		"paymentReference": r.PaymentReference,
		"updatedAt":        m.now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("reservation")
	}
	return nil
}
