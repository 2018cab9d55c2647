package repository

import (
	"context"
	"testing"
	"time"

	"github.com/has-1997/jetback-mvp/internal/domain/entity"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const bookingsNS = "mtest.tracked_bookings"

func newMockedBookingRepo(mt *mtest.T) *MongoTrackedBookingRepository {
	// createIndexes
	mt.AddMockResponses(mtest.CreateSuccessResponse())
	r := NewMongoTrackedBookingRepository(mt.DB).(*MongoTrackedBookingRepository)
	mt.ClearEvents()
	return r
}

func TestMongoTrackedBookingRepository_MarkSavingsFound(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	id := primitive.NewObjectID()
	checkedAt := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	mt.Run("guarded update", func(mt *mtest.T) {
		r := newMockedBookingRepo(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		err := r.MarkSavingsFound(context.Background(), id.Hex(), decimal.RequireFromString("199.50"), checkedAt)
		require.NoError(mt, err)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "update", started.CommandName)

		cmd := started.Command
		assert.Equal(mt, id, cmd.Lookup("updates", "0", "q", "_id").ObjectID())
		assert.Equal(mt, "tracking", cmd.Lookup("updates", "0", "q", "status").StringValue())

		set := []string{"updates", "0", "u", "$set"}
		assert.Equal(mt, "savings_found", cmd.Lookup(append(set, "status")...).StringValue())
		assert.Equal(mt, bson.TypeDecimal128, cmd.Lookup(append(set, "currentPrice")...).Type)
		assert.Equal(mt, "199.5", cmd.Lookup(append(set, "currentPrice")...).Decimal128().String())
		assert.Equal(mt, checkedAt.UnixMilli(), cmd.Lookup(append(set, "lastCheckedAt")...).Time().UnixMilli())
	})

	mt.Run("already savings found", func(mt *mtest.T) {
		r := newMockedBookingRepo(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, bookingsNS, mtest.FirstBatch, bson.D{
				{Key: "_id", Value: 1},
				{Key: "n", Value: 1},
			}),
		)

		err := r.MarkSavingsFound(context.Background(), id.Hex(), decimal.RequireFromString("199.50"), checkedAt)
		assert.ErrorIs(mt, err, entity.ErrNotTracking)
	})

	mt.Run("missing booking", func(mt *mtest.T) {
		r := newMockedBookingRepo(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, bookingsNS, mtest.FirstBatch),
		)

		err := r.MarkSavingsFound(context.Background(), id.Hex(), decimal.RequireFromString("199.50"), checkedAt)
		assert.ErrorIs(mt, err, entity.ErrBookingNotFound)
	})

	mt.Run("invalid id", func(mt *mtest.T) {
		r := newMockedBookingRepo(mt)

		err := r.MarkSavingsFound(context.Background(), "not-an-object-id", decimal.RequireFromString("1"), checkedAt)
		assert.ErrorIs(mt, err, entity.ErrBookingNotFound)
		assert.Nil(mt, mt.GetStartedEvent())
	})
}

func TestMongoTrackedBookingRepository_DecimalPrices(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	createdAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mt.Run("create stores decimal128", func(mt *mtest.T) {
		r := newMockedBookingRepo(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		booking := entity.NewTrackedBooking(entity.BookingDraft{
			ConfirmationCode: "ABC123",
			TotalPrice:       decimal.RequireFromString("245.10"),
			OwnerID:          "jane@example.com",
		}, createdAt)

		require.NoError(mt, r.Create(context.Background(), booking))
		assert.NotEmpty(mt, booking.ID)

		doc := mt.GetStartedEvent().Command
		assert.Equal(mt, bson.TypeDecimal128, doc.Lookup("documents", "0", "baselinePrice").Type)
		assert.Equal(mt, "245.1", doc.Lookup("documents", "0", "baselinePrice").Decimal128().String())
		assert.Equal(mt, "tracking", doc.Lookup("documents", "0", "status").StringValue())
		_, err := doc.LookupErr("documents", "0", "currentPrice")
		assert.Error(mt, err)
	})

	mt.Run("find by id reads decimal128", func(mt *mtest.T) {
		r := newMockedBookingRepo(mt)
		id := primitive.NewObjectID()
		baseline, _ := primitive.ParseDecimal128("300.00")
		current, _ := primitive.ParseDecimal128("249.99")
		checkedAt := createdAt.Add(24 * time.Hour)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, bookingsNS, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "confirmationCode", Value: "ZX9K41"},
			{Key: "ownerId", Value: "user-7"},
			{Key: "origin", Value: "JFK"},
			{Key: "destination", Value: "LAX"},
			{Key: "departureDate", Value: "2026-05-01"},
			{Key: "baselinePrice", Value: baseline},
			{Key: "currentPrice", Value: current},
			{Key: "status", Value: "savings_found"},
			{Key: "lastCheckedAt", Value: checkedAt},
			{Key: "createdAt", Value: createdAt},
			{Key: "updatedAt", Value: checkedAt},
		}))

		booking, err := r.FindByID(context.Background(), id.Hex())
		require.NoError(mt, err)

		assert.Equal(mt, id.Hex(), booking.ID)
		assert.True(mt, booking.BaselinePrice.Equal(decimal.RequireFromString("300")))
		require.NotNil(mt, booking.CurrentPrice)
		assert.Equal(mt, "249.99", booking.CurrentPrice.StringFixed(2))
		assert.Equal(mt, entity.BookingStatusSavingsFound, booking.Status)
		require.NotNil(mt, booking.LastCheckedAt)
		assert.True(mt, checkedAt.Equal(*booking.LastCheckedAt))
		assert.True(mt, booking.HasRoute())
	})

	mt.Run("find by id not found", func(mt *mtest.T) {
		r := newMockedBookingRepo(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, bookingsNS, mtest.FirstBatch))

		_, err := r.FindByID(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, entity.ErrBookingNotFound)
	})
}
