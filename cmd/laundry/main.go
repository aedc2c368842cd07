package main

import (
	"dormly/internal/laundry/events"
	"dormly/internal/laundry/handler"
	"dormly/internal/laundry/projection"
	"dormly/internal/laundry/repository"
	"dormly/internal/laundry/service"
	"dormly/internal/laundry/validator"
	"dormly/pkg/app"
	"dormly/pkg/config"
	mongotx "dormly/pkg/db/mongo"
	"dormly/pkg/kafka"
	kafka_config "dormly/pkg/kafka/config"
	kafka_middleware "dormly/pkg/kafka/middleware"
)

const ServiceName = "laundry"

type services struct {
	reservations service.ReservationService
	catalog      service.CatalogService
	history      service.HistoryService
	admin        service.AdminService
	validator    *validator.ReservationValidator
	publisher    events.Publisher
}

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Laundry service")
	svc := initServices(cfg)

	reservationHandler := handler.NewReservationHandler(svc.reservations, svc.catalog, svc.validator, cfg.Log)
	historyHandler := handler.NewHistoryHandler(svc.history, cfg.Log)
	adminHandler := handler.NewAdminHandler(svc.admin, svc.history, cfg.Log)
	streamHandler := handler.NewStreamHandler(svc.catalog, svc.history, cfg.Log)

	serverApp := app.NewApplication(
		cfg,
		handler.NewHealthHandler(cfg.Client.Mongo, cfg.Client.Redis, cfg.Log),
		handler.Handlers{reservationHandler, historyHandler, adminHandler},
		streamHandler,
	)
	serverApp.OnShutdown(func() {
		if err := svc.publisher.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
	})
	serverApp.Run()
}

func initServices(cfg *config.Config) services {
	reservationValidator := validator.NewReservationValidator(cfg.Log)
	slotRepo := repository.NewMongoSlotRepository(cfg)
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	txManager := mongotx.NewTransactionManager(cfg.Client.Mongo)
	publisher := initPublisher(cfg)

	historyStore, rebuilder, historyKind := historyBackend(cfg, bookingRepo)

	svc := services{
		reservations: service.NewReservationService(slotRepo, bookingRepo, txManager, reservationValidator, publisher, cfg),
		catalog:      service.NewCatalogService(slotRepo, bookingRepo, reservationValidator, cfg),
		history:      service.NewHistoryService(historyStore, rebuilder, bookingRepo, reservationValidator, cfg),
		admin:        service.NewAdminService(slotRepo, bookingRepo, txManager, reservationValidator, cfg),
		validator:    reservationValidator,
		publisher:    publisher,
	}

	cfg.Log.Info("Laundry service initialized",
		"database", cfg.MongoDatabaseName,
		"history_store", historyKind,
		"events", cfg.KafkaEnabled,
	)
	return svc
}

// historyBackend serves history from the Redis projection only when booking
// events reach it through Kafka. Otherwise history is read from MongoDB.
func historyBackend(cfg *config.Config, bookings repository.BookingRepository) (service.HistoryStore, service.HistoryRebuilder, string) {
	if cfg.HistoryProjectionEnabled() {
		store := projection.NewStore(cfg.Client.Redis, cfg.Log)
		return store, store, "redis"
	}
	if cfg.RedisEnabled() {
		cfg.Log.Warn("Kafka is disabled, nothing feeds the Redis history projection; reading history from MongoDB")
	}
	return service.NewMongoHistoryStore(bookings), nil, "mongo"
}

// initPublisher falls back to a no-op publisher when Kafka is disabled. An
// invalid Kafka configuration is fatal.
func initPublisher(cfg *config.Config) events.Publisher {
	if !cfg.KafkaEnabled {
		return events.NoopPublisher{}
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.EventsTopic, kafkaCfg.DLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	return events.NewKafkaPublisher(producer, ServiceName)
}
