package store

import (
	"context"
	"time"

	"user-webhook-sync/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const externalUserIDField = "externalUserId"

type MongoUserStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoUserStore(coll *mongo.Collection) *MongoUserStore {
	return &MongoUserStore{
		coll: coll,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// EnsureIndexes creates the unique index the upsert relies on.
func (s *MongoUserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: externalUserIDField, Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_external_user_id"),
	})
	if err != nil {
		return &PersistenceError{Op: "ensure indexes", Err: err}
	}
	return nil
}

func (s *MongoUserStore) CreateUser(ctx context.Context, externalUserID, email string) (models.User, bool, error) {
	createdAt := s.now()
	filter := bson.D{{Key: externalUserIDField, Value: externalUserID}}
	update := bson.D{{Key: "$setOnInsert", Value: bson.D{
		{Key: "email", Value: email},
		{Key: "createdAt", Value: createdAt},
	}}}

	res, err := s.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		// Two concurrent upserts can both miss and race on the unique index.
		if mongo.IsDuplicateKeyError(err) {
			user, findErr := s.findUser(ctx, externalUserID)
			return user, false, findErr
		}
		return models.User{}, false, &PersistenceError{Op: "create user", Err: err}
	}

	if res.UpsertedCount > 0 {
		return models.User{
			ExternalUserID: externalUserID,
			Email:          email,
			CreatedAt:      createdAt,
		}, true, nil
	}

	user, err := s.findUser(ctx, externalUserID)
	return user, false, err
}

func (s *MongoUserStore) findUser(ctx context.Context, externalUserID string) (models.User, error) {
	var user models.User
	err := s.coll.FindOne(ctx, bson.D{{Key: externalUserIDField, Value: externalUserID}}).Decode(&user)
	if err != nil {
		return models.User{}, &PersistenceError{Op: "find user", Err: err}
	}
	return user, nil
}

func (s *MongoUserStore) Ping(ctx context.Context) error {
	if err := s.coll.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return &PersistenceError{Op: "ping", Err: err}
	}
	return nil
}

func (s *MongoUserStore) Close(ctx context.Context) error {
	return s.coll.Database().Client().Disconnect(ctx)
}
