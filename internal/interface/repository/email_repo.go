// internal/interface/repository/email_repo.go
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/has-1997/jetback-mvp/internal/domain/entity"
	"github.com/has-1997/jetback-mvp/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoEmailRepository implements the EmailRepository interface
type MongoEmailRepository struct {
	collection *mongo.Collection
}

// NewMongoEmailRepository creates a new MongoDB email repository
func NewMongoEmailRepository(db *mongo.Database) repository.EmailRepository {
	collection := db.Collection("emailLogs")

	ctx := context.Background()

	// Unique only for emails that carry an id; webhook payloads may not
	emailIDIndex := mongo.IndexModel{
		Keys: bson.M{"emailId": 1},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"emailId": bson.M{"$gt": ""}}),
	}

	outcomeIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "outcome", Value: 1},
			{Key: "receivedAt", Value: -1},
		},
	}

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		emailIDIndex,
		outcomeIndex,
	})

	return &MongoEmailRepository{
		collection: collection,
	}
}

// Save records the ingestion outcome of an email. Emails with an id are
// upserted so a redelivered message overwrites its previous outcome.
func (r *MongoEmailRepository) Save(ctx context.Context, email *entity.InboundEmail) error {
	if email.ProcessedAt.IsZero() {
		email.ProcessedAt = time.Now()
	}

	if email.EmailID == "" {
		if _, err := r.collection.InsertOne(ctx, email); err != nil {
			return fmt.Errorf("failed to insert email log: %w", err)
		}
		return nil
	}

	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"emailId": email.EmailID},
		bson.M{"$set": email},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert email log: %w", err)
	}

	return nil
}

// FindByEmailIDs finds multiple emails by message IDs (batch operation)
func (r *MongoEmailRepository) FindByEmailIDs(ctx context.Context, emailIDs []string) (map[string]*entity.InboundEmail, error) {
	if len(emailIDs) == 0 {
		return make(map[string]*entity.InboundEmail), nil
	}

	filter := bson.M{"emailId": bson.M{"$in": emailIDs}}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	result := make(map[string]*entity.InboundEmail)
	for cursor.Next(ctx) {
		var email entity.InboundEmail
		if err := cursor.Decode(&email); err != nil {
			continue
		}
		result[email.EmailID] = &email
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
