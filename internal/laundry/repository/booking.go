package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	laundryerrors "dormly/internal/laundry/errors"
	"dormly/pkg/config"
	mongotx "dormly/pkg/db/mongo"
	"dormly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	BookingsCollectionName = "Laundry_bookings"
)

type BookingRepository interface {
	FindByDateAndRequester(ctx context.Context, dateKey, requesterID string) (*model.Booking, error)
	Create(ctx context.Context, booking *model.Booking) error
	Delete(ctx context.Context, dateKey, requesterID string) error
	CountByDate(ctx context.Context, dateKey string) (map[string]int, error)
	FindUpcoming(ctx context.Context, requesterID string, from time.Time, limit int) ([]*model.Booking, error)
	Watch(ctx context.Context, requesterID string) (<-chan struct{}, error)
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(BookingsCollectionName),
	}
}

func (r *mongoBookingRepository) FindByDateAndRequester(ctx context.Context, dateKey, requesterID string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	err := r.collection.FindOne(ctx, bson.M{"_id": model.BookingDocumentID(dateKey, requesterID)}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, laundryerrors.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &booking, nil
}

// Create inserts the booking under its (dateKey, requesterId) key. A
// duplicate key means the requester already holds a booking for the day.
func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	booking.ID = model.BookingDocumentID(booking.DateKey, booking.RequesterID)
	if _, err := r.collection.InsertOne(ctx, booking); err != nil {
		if mongotx.IsDuplicateKey(err) {
			return laundryerrors.ErrAlreadyBooked
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *mongoBookingRepository) Delete(ctx context.Context, dateKey, requesterID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": model.BookingDocumentID(dateKey, requesterID)})
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if result.DeletedCount == 0 {
		return laundryerrors.ErrBookingNotFound
	}
	return nil
}

// CountByDate returns the number of bookings per slot id for a day.
func (r *mongoBookingRepository) CountByDate(ctx context.Context, dateKey string) (map[string]int, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"date_key": dateKey}}},
		{{Key: "$group", Value: bson.M{"_id": "$slot_id", "count": bson.M{"$sum": 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		SlotID string `bson:"_id"`
		Count  int    `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode booking counts: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.SlotID] = row.Count
	}
	return counts, nil
}

// FindUpcoming returns the requester's bookings with forDate >= from in
// ascending forDate order.
func (r *mongoBookingRepository) FindUpcoming(ctx context.Context, requesterID string, from time.Time, limit int) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"requester_id": requesterID,
		"for_date":     bson.M{"$gte": from},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "for_date", Value: 1}, {Key: "date_key", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find upcoming bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := make([]*model.Booking, 0)
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode upcoming bookings: %w", err)
	}
	return bookings, nil
}

// Watch signals every insert or delete of the requester's bookings. Deletes
// carry no full document, so the match is on the document key, which embeds
// the requester id.
func (r *mongoBookingRepository) Watch(ctx context.Context, requesterID string) (<-chan struct{}, error) {
	keyPattern := `^\d{4}-\d{2}-\d{2}_` + regexp.QuoteMeta(requesterID) + `$`
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"documentKey._id": bson.M{"$regex": keyPattern},
		}}},
	}

	stream, err := r.collection.Watch(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to watch bookings: %w", err)
	}

	return pump(ctx, stream, r.cfg, "bookings", requesterID), nil
}
