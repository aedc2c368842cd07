package repository

import (
	"context"
	"errors"
	"fmt"
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
	SlotsCollectionName = "Laundry_slots"
)

type SlotRepository interface {
	FindByDate(ctx context.Context, dateKey string) ([]*model.Slot, error)
	FindByID(ctx context.Context, dateKey, slotID string) (*model.Slot, error)
	IncrementBooked(ctx context.Context, dateKey, slotID string) error
	DecrementBooked(ctx context.Context, dateKey, slotID string) error
	Upsert(ctx context.Context, dateKey string, seed model.SlotSeed) (bool, error)
	Watch(ctx context.Context, dateKey string) (<-chan struct{}, error)
}

type mongoSlotRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSlotRepository(cfg *config.Config) SlotRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotRepository{
		cfg:        cfg,
		collection: db.Collection(SlotsCollectionName),
	}
}

func (r *mongoSlotRepository) FindByDate(ctx context.Context, dateKey string) ([]*model.Slot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "start", Value: 1}, {Key: "slot_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"date_key": dateKey}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find slots: %w", err)
	}
	defer cursor.Close(ctx)

	slots := make([]*model.Slot, 0)
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}
	return slots, nil
}

func (r *mongoSlotRepository) FindByID(ctx context.Context, dateKey, slotID string) (*model.Slot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var slot model.Slot
	err := r.collection.FindOne(ctx, bson.M{"_id": model.SlotDocumentID(dateKey, slotID)}).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, laundryerrors.ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}
	return &slot, nil
}

// IncrementBooked takes one seat. The filter re-checks capacity so the counter
// can never pass it even if the caller's read was stale.
func (r *mongoSlotRepository) IncrementBooked(ctx context.Context, dateKey, slotID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	id := model.SlotDocumentID(dateKey, slotID)
	filter := bson.M{
		"_id": id,
		"$expr": bson.M{"$lt": bson.A{
			bson.M{"$ifNull": bson.A{"$booked_count", 0}},
			bson.M{"$max": bson.A{"$capacity", 1}},
		}},
	}
	update := bson.M{
		"$inc": bson.M{"booked_count": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to increment booked count: %w", err)
	}
	if result.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("failed to check slot existence: %w", err)
		}
		if count == 0 {
			return laundryerrors.ErrSlotNotFound
		}
		return laundryerrors.ErrSlotFull
	}
	return nil
}

// DecrementBooked releases one seat, clamped at zero.
func (r *mongoSlotRepository) DecrementBooked(ctx context.Context, dateKey, slotID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"booked_count": bson.M{"$max": bson.A{
				0,
				bson.M{"$subtract": bson.A{bson.M{"$ifNull": bson.A{"$booked_count", 0}}, 1}},
			}},
			"updated_at": "$$NOW",
		}}},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": model.SlotDocumentID(dateKey, slotID)}, update)
	if err != nil {
		return fmt.Errorf("failed to decrement booked count: %w", err)
	}
	if result.MatchedCount == 0 {
		return laundryerrors.ErrSlotNotFound
	}
	return nil
}

// Upsert creates the slot with an empty counter or updates its window and
// capacity. It reports whether the slot was created.
func (r *mongoSlotRepository) Upsert(ctx context.Context, dateKey string, seed model.SlotSeed) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"start":      seed.Start,
			"end":        seed.End,
			"capacity":   seed.Capacity,
			"updated_at": time.Now().UTC(),
		},
		"$setOnInsert": bson.M{
			"date_key":     dateKey,
			"slot_id":      seed.SlotID,
			"booked_count": 0,
		},
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": model.SlotDocumentID(dateKey, seed.SlotID)},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert slot: %w", err)
	}
	return result.UpsertedCount > 0, nil
}

// Watch signals every committed change to the day's slots. Signals are
// coalesced; a receiver should re-read the day rather than count them. The
// channel closes when ctx is done or the stream fails.
func (r *mongoSlotRepository) Watch(ctx context.Context, dateKey string) (<-chan struct{}, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"fullDocument.date_key": dateKey}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	stream, err := r.collection.Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to watch slots: %w", err)
	}

	return pump(ctx, stream, r.cfg, "slots", dateKey), nil
}
