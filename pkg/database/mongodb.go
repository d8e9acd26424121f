// ==============================================
// pkg/database/mongodb.go
// ==============================================
package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"civicconnect/internal/config"
	"civicconnect/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	client   *mongo.Client
	database *mongo.Database
	once     sync.Once
)

// ErrNotInitialized is returned by helpers used before InitMongoDB.
var ErrNotInitialized = errors.New("database not initialized")

// InitMongoDB initializes the MongoDB connection once per process
func InitMongoDB(cfg config.MongoConfig) error {
	var err error

	once.Do(func() {
		err = connectToMongoDB(cfg)
	})

	return err
}

func connectToMongoDB(cfg config.MongoConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(cfg.MaxConnIdleTime).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout).
		SetHeartbeatInterval(cfg.HeartbeatInterval).
		SetRetryWrites(true).
		SetRetryReads(true)

	var err error
	client, err = mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database = client.Database(cfg.Database)
	logger.Infof("Connected to MongoDB database: %s", cfg.Database)

	return nil
}

// GetDatabase returns the database instance, or nil before InitMongoDB
func GetDatabase() *mongo.Database {
	return database
}

// Disconnect closes the MongoDB connection
func Disconnect(ctx context.Context) error {
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

// HealthCheck pings the primary and reports the outcome
func HealthCheck(ctx context.Context) map[string]interface{} {
	if database == nil {
		return map[string]interface{}{
			"status": "disconnected",
			"error":  ErrNotInitialized.Error(),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	}

	return map[string]interface{}{
		"status":   "connected",
		"database": database.Name(),
		"latency":  time.Since(start).String(),
	}
}

// IndexGroup lists the indexes of one collection.
type IndexGroup struct {
	Collection string
	Indexes    []mongo.IndexModel
}

// Indexes returns every index the complaint workflow relies on. The unique
// complaintId and userEmail indexes back the store's duplicate-key handling.
func Indexes() []IndexGroup {
	return []IndexGroup{
		{
			Collection: "complaints",
			Indexes: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "complaintId", Value: 1}},
					Options: options.Index().SetUnique(true),
				},
				{
					Keys: bson.D{{Key: "complaintUser", Value: 1}, {Key: "createdAt", Value: -1}},
				},
				{
					Keys: bson.D{{Key: "complaintAuthority", Value: 1}, {Key: "createdAt", Value: -1}},
				},
				{
					Keys: bson.D{{Key: "complaintStatus", Value: 1}, {Key: "complaintResolvedDate", Value: -1}},
				},
				{
					Keys:    bson.D{{Key: "complaintImageHash", Value: 1}},
					Options: options.Index().SetSparse(true),
				},
				{
					Keys:    bson.D{{Key: "complaintVideoHash", Value: 1}},
					Options: options.Index().SetSparse(true),
				},
			},
		},
		{
			Collection: "notifications",
			Indexes: []mongo.IndexModel{
				{
					Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
				},
				{
					Keys: bson.D{{Key: "recipientRole", Value: 1}, {Key: "createdAt", Value: -1}},
				},
			},
		},
		{
			Collection: "users",
			Indexes: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "userEmail", Value: 1}},
					Options: options.Index().SetUnique(true),
				},
				{
					Keys: bson.D{{Key: "userRole", Value: 1}, {Key: "userDepartment", Value: 1}},
				},
			},
		},
		{
			Collection: "community_posts",
			Indexes: []mongo.IndexModel{
				{
					Keys: bson.D{{Key: "createdAt", Value: -1}},
				},
			},
		},
		{
			Collection: "notes",
			Indexes: []mongo.IndexModel{
				{
					Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: 1}},
				},
			},
		},
	}
}

// EnsureIndexes creates the indexes returned by Indexes. Failures on one collection are
// logged and the rest still run; the joined error is returned.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if db == nil {
		return ErrNotInitialized
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var errs []error
	for _, group := range Indexes() {
		if len(group.Indexes) == 0 {
			continue
		}
		if _, err := db.Collection(group.Collection).Indexes().CreateMany(ctx, group.Indexes); err != nil {
			logger.WithError(err).WithField("collection", group.Collection).Warn("Failed to create indexes")
			errs = append(errs, fmt.Errorf("%s: %w", group.Collection, err))
			continue
		}
		logger.Debugf("Created %d indexes for collection: %s", len(group.Indexes), group.Collection)
	}

	return errors.Join(errs...)
}
