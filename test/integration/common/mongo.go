package common

import (
	"context"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"dormly/internal/laundry/repository"
	"dormly/pkg/client"
	"dormly/pkg/logger"
	"dormly/pkg/model"
)

const (
	DefaultMongoURI     = "mongodb://localhost:27017/?replicaSet=rs0"
	DefaultDatabaseName = "dormly_test"
	DefaultServerURL    = "http://localhost:8080"
	ConnectionTimeout   = 10 * time.Second
)

type MongoHelper struct {
	Client   *mongo.Client
	Database *mongo.Database
	DBName   string
}

func NewMongoHelper(t *testing.T) *MongoHelper {
	t.Helper()

	mongoURI := Env("MONGO_URI", DefaultMongoURI)
	dbName := Env("MONGO_DATABASE_NAME", DefaultDatabaseName)

	testLogger := logger.New(logger.Config{
		Service: "test",
		Level:   "debug",
	})

	conn := client.NewClient()
	conn.SetMongo(testLogger, mongoURI, ConnectionTimeout)

	return &MongoHelper{
		Client:   conn.Mongo,
		Database: conn.Mongo.Database(dbName),
		DBName:   dbName,
	}
}

// ClearDay removes the slots and bookings of dateKey.
func (m *MongoHelper) ClearDay(t *testing.T, dateKey string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, name := range []string{repository.SlotsCollectionName, repository.BookingsCollectionName} {
		if _, err := m.Database.Collection(name).DeleteMany(ctx, bson.M{"date_key": dateKey}); err != nil {
			t.Fatalf("failed to clear %s for %s: %v", name, dateKey, err)
		}
	}
}

// SetBookedCount overwrites a slot's counter behind the service's back.
func (m *MongoHelper) SetBookedCount(t *testing.T, dateKey, slotID string, count int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := m.Database.Collection(repository.SlotsCollectionName).UpdateOne(ctx,
		bson.M{"_id": model.SlotDocumentID(dateKey, slotID)},
		bson.M{"$set": bson.M{"booked_count": count}},
	)
	if err != nil {
		t.Fatalf("failed to set booked_count of %s/%s: %v", dateKey, slotID, err)
	}
	if result.MatchedCount == 0 {
		t.Fatalf("slot %s/%s not found", dateKey, slotID)
	}
}

func (m *MongoHelper) Close(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.Client.Disconnect(ctx); err != nil {
		t.Logf("warning: failed to disconnect from MongoDB: %v", err)
	}
}

func Env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
