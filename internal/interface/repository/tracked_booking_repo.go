package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/has-1997/jetback-mvp/internal/domain/entity"
	"github.com/has-1997/jetback-mvp/internal/domain/repository"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// trackedBookingDocument is the MongoDB shape of a tracked booking
type trackedBookingDocument struct {
	ID               primitive.ObjectID    `bson:"_id,omitempty"`
	ConfirmationCode string                `bson:"confirmationCode"`
	OwnerID          string                `bson:"ownerId"`
	Origin           string                `bson:"origin"`
	Destination      string                `bson:"destination"`
	DepartureDate    string                `bson:"departureDate"`
	BaselinePrice    primitive.Decimal128  `bson:"baselinePrice"`
	CurrentPrice     *primitive.Decimal128 `bson:"currentPrice,omitempty"`
	Status           string                `bson:"status"`
	LastCheckedAt    *time.Time            `bson:"lastCheckedAt,omitempty"`
	Source           string                `bson:"source"`
	SourceMessageID  string                `bson:"sourceMessageId,omitempty"`
	CreatedAt        time.Time             `bson:"createdAt"`
	UpdatedAt        time.Time             `bson:"updatedAt"`
}

// MongoTrackedBookingRepository implements TrackedBookingRepository
type MongoTrackedBookingRepository struct {
	collection *mongo.Collection
}

// NewMongoTrackedBookingRepository creates a new tracked booking repository
func NewMongoTrackedBookingRepository(db *mongo.Database) repository.TrackedBookingRepository {
	collection := db.Collection("tracked_bookings")

	ctx := context.Background()

	// Reconciliation snapshots query by status
	statusIndex := mongo.IndexModel{
		Keys: bson.M{"status": 1},
	}

	// Not unique: forwarding the same email twice creates two tracked bookings
	codeIndex := mongo.IndexModel{
		Keys: bson.M{"confirmationCode": 1},
	}

	ownerIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "ownerId", Value: 1},
			{Key: "createdAt", Value: -1},
		},
	}

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		statusIndex,
		codeIndex,
		ownerIndex,
	})

	return &MongoTrackedBookingRepository{
		collection: collection,
	}
}

// Create inserts a new tracked booking and sets its ID
func (r *MongoTrackedBookingRepository) Create(ctx context.Context, booking *entity.TrackedBooking) error {
	doc, err := toTrackedBookingDocument(booking)
	if err != nil {
		return err
	}
	doc.ID = primitive.NilObjectID

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to insert tracked booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}

	return nil
}

// FindByStatus returns every booking currently in the given status
func (r *MongoTrackedBookingRepository) FindByStatus(ctx context.Context, status entity.BookingStatus) ([]*entity.TrackedBooking, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"status": string(status)})
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings by status: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []trackedBookingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	bookings := make([]*entity.TrackedBooking, 0, len(docs))
	for i := range docs {
		booking, err := docs[i].toEntity()
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, nil
}

// FindByID finds a booking by its ID
func (r *MongoTrackedBookingRepository) FindByID(ctx context.Context, id string) (*entity.TrackedBooking, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, entity.ErrBookingNotFound
	}

	var doc trackedBookingDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entity.ErrBookingNotFound
		}
		return nil, err
	}

	return doc.toEntity()
}

// MarkSavingsFound sets status, currentPrice and lastCheckedAt in a single
// document update guarded by status=tracking
func (r *MongoTrackedBookingRepository) MarkSavingsFound(ctx context.Context, id string, currentPrice decimal.Decimal, checkedAt time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return entity.ErrBookingNotFound
	}

	price, err := primitive.ParseDecimal128(currentPrice.String())
	if err != nil {
		return fmt.Errorf("invalid current price %s: %w", currentPrice, err)
	}

	filter := bson.M{
		"_id":    oid,
		"status": string(entity.BookingStatusTracking),
	}
	update := bson.M{
		"$set": bson.M{
			"status":        string(entity.BookingStatusSavingsFound),
			"currentPrice":  price,
			"lastCheckedAt": checkedAt,
			"updatedAt":     checkedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark savings found: %w", err)
	}

	if result.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return fmt.Errorf("failed to check booking existence: %w", err)
		}
		if count == 0 {
			return entity.ErrBookingNotFound
		}
		return entity.ErrNotTracking
	}

	return nil
}

func toTrackedBookingDocument(b *entity.TrackedBooking) (*trackedBookingDocument, error) {
	baseline, err := primitive.ParseDecimal128(b.BaselinePrice.String())
	if err != nil {
		return nil, fmt.Errorf("invalid baseline price %s: %w", b.BaselinePrice, err)
	}

	doc := &trackedBookingDocument{
		ConfirmationCode: b.ConfirmationCode,
		OwnerID:          b.OwnerID,
		Origin:           b.Origin,
		Destination:      b.Destination,
		DepartureDate:    b.DepartureDate,
		BaselinePrice:    baseline,
		Status:           string(b.Status),
		LastCheckedAt:    b.LastCheckedAt,
		Source:           b.Source,
		SourceMessageID:  b.SourceMessageID,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}

	if b.CurrentPrice != nil {
		current, err := primitive.ParseDecimal128(b.CurrentPrice.String())
		if err != nil {
			return nil, fmt.Errorf("invalid current price %s: %w", b.CurrentPrice, err)
		}
		doc.CurrentPrice = &current
	}

	return doc, nil
}

func (d *trackedBookingDocument) toEntity() (*entity.TrackedBooking, error) {
	baseline, err := decimal.NewFromString(d.BaselinePrice.String())
	if err != nil {
		return nil, fmt.Errorf("booking %s: invalid baseline price: %w", d.ID.Hex(), err)
	}

	booking := &entity.TrackedBooking{
		ID:               d.ID.Hex(),
		ConfirmationCode: d.ConfirmationCode,
		OwnerID:          d.OwnerID,
		Origin:           d.Origin,
		Destination:      d.Destination,
		DepartureDate:    d.DepartureDate,
		BaselinePrice:    baseline,
		Status:           entity.BookingStatus(d.Status),
		LastCheckedAt:    d.LastCheckedAt,
		Source:           d.Source,
		SourceMessageID:  d.SourceMessageID,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}

	if d.CurrentPrice != nil {
		current, err := decimal.NewFromString(d.CurrentPrice.String())
		if err != nil {
			return nil, fmt.Errorf("booking %s: invalid current price: %w", d.ID.Hex(), err)
		}
		booking.CurrentPrice = &current
	}

	return booking, nil
}
