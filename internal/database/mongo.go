package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const mongoConnectTimeout = 15 * time.Second

// ConnectMongo dials the cluster, verifies it with a primary ping and returns
// the named database handle. maxPool caps the driver's connection pool; zero
// keeps the driver default.
func ConnectMongo(uri, dbName string, maxPool uint64, logger *zap.SugaredLogger) (*mongo.Database, *mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second)
	if maxPool > 0 {
		opts.SetMaxPoolSize(maxPool)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		logger.Errorf("mongo connect failed: %v", err)
		return nil, nil, err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		logger.Errorf("mongo ping failed: %v", err)
		return nil, nil, err
	}

	logger.Infow("connected to mongo", "database", dbName)
	return client.Database(dbName), client, nil
}
