package persistence

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultMongoConnectTimeout bounds connect and the startup ping when no timeout is configured
const DefaultMongoConnectTimeout = 10 * time.Second

// MongoOptions configures the record store connection
type MongoOptions struct {
	URI            string
	Username       string
	Password       string
	AppName        string
	ConnectTimeout time.Duration
}

func (o MongoOptions) clientOptions() *options.ClientOptions {
	timeout := o.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultMongoConnectTimeout
	}

	clientOptions := options.Client().
		ApplyURI(o.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	if o.AppName != "" {
		clientOptions.SetAppName(o.AppName)
	}

	if o.Username != "" && o.Password != "" {
		clientOptions.SetAuth(options.Credential{
			Username: o.Username,
			Password: o.Password,
		})
	}

	return clientOptions
}

// NewMongoClient connects and pings the primary. The whole handshake is
// bounded by the connect timeout.
func NewMongoClient(ctx context.Context, opts MongoOptions) (*mongo.Client, error) {
	clientOptions := opts.clientOptions()

	ctx, cancel := context.WithTimeout(ctx, *clientOptions.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return client, nil
}

// GetDatabase gets a database from the client
func GetDatabase(client *mongo.Client, name string) *mongo.Database {
	return client.Database(name)
}
