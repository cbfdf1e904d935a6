package config

import (
	"context"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	replicaClient *mongo.Client
	replicaDb     *mongo.Database
)

// GetReplicaDB returns the read-optimized document replica database.
// May be nil before ConnectReplicaWithRetry completes.
func GetReplicaDB() *mongo.Database {
	return replicaDb
}

// ConnectReplicaWithRetry connects to the MongoDB replica store.
// Call this from main() AFTER the HTTP server is listening.
func ConnectReplicaWithRetry() {
	uri := os.Getenv("REPLICA_MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
		log.Printf("REPLICA_MONGO_URI not set; defaulting to %s", uri)
	}
	dbName := os.Getenv("REPLICA_MONGO_DB")
	if dbName == "" {
		dbName = "catalog_replica"
	}

	var attempt int
	for {
		attempt++
		connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
		if err == nil {
			err = client.Ping(connectCtx, readpref.Primary())
		}
		cancel()
		if err == nil {
			replicaClient = client
			replicaDb = client.Database(dbName)
			log.Printf("connected to replica store (attempt=%d db=%s)", attempt, dbName)
			return
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Printf("failed to connect replica store (attempt=%d): %v; retrying in %s", attempt, err, sleep)
		time.Sleep(sleep)
	}
}

// DisconnectReplica closes the replica client, for graceful shutdown.
func DisconnectReplica(ctx context.Context) {
	if replicaClient == nil {
		return
	}
	if err := replicaClient.Disconnect(ctx); err != nil {
		log.Printf("replica store disconnect: %v", err)
	}
}
