package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo is a Collector that inserts each bound result as a document in a
// MongoDB collection — an optional fan-out sink, demoted from "primary
// storage" in the teacher (internal/storage/database.go's MongoStorage) to
// an additional Collector now that the frontier itself lives in Store.
type Mongo struct {
	client     *mongo.Client
	collection *mongo.Collection
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewMongo connects to uri and targets database.collection.
func NewMongo(uri, database, collection string, logger *slog.Logger) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Mongo{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_collector"),
	}, nil
}

// Collect inserts result as a single document. result is typically a
// pointer to a bound schema struct; the driver's default BSON marshaling
// applies.
func (m *Mongo) Collect(result any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := m.collection.InsertOne(ctx, result); err != nil {
		return fmt.Errorf("mongodb insert: %w", err)
	}
	m.count++
	m.logger.Debug("result stored in mongodb", "total", m.count)
	return nil
}

// Close disconnects the underlying client.
func (m *Mongo) Close() error {
	m.logger.Info("mongo collector closing", "total", m.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// MultiCollector fans a single result out to multiple Collectors, continuing
// past individual failures and returning the first error encountered.
type MultiCollector struct {
	collectors []func(result any) error
	logger     *slog.Logger
}

// NewMultiCollector builds a fan-out Collector over the given collectors.
func NewMultiCollector(logger *slog.Logger, collectors ...func(result any) error) *MultiCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiCollector{collectors: collectors, logger: logger.With("component", "multi_collector")}
}

func (m *MultiCollector) Collect(result any) error {
	var firstErr error
	for i, c := range m.collectors {
		if err := c(result); err != nil {
			m.logger.Error("fan-out collector failed", "index", i, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
