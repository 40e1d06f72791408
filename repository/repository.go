// Package repository holds the MongoDB-backed stores for events, notices and users.
package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	eventsCollection  = "events"
	noticesCollection = "notices"
	usersCollection   = "users"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
)

// Store bundles the three repositories over one database.
type Store struct {
	Events  *EventRepo
	Notices *NoticeRepo
	Users   *UserRepo

	db *mongo.Database
}

func New(db *mongo.Database) *Store {
	users := &UserRepo{col: db.Collection(usersCollection)}
	return &Store{
		db:      db,
		Events:  &EventRepo{col: db.Collection(eventsCollection), users: users},
		Notices: &NoticeRepo{col: db.Collection(noticesCollection), users: users},
		Users:   users,
	}
}

// Ping checks that the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

// EnsureIndexes creates the indexes every query path relies on. Safe to call on
// every start.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[*mongo.Collection][]mongo.IndexModel{
		s.Users.col: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "is_active", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		s.Events.col: {
			{Keys: bson.D{{Key: "title", Value: 1}, {Key: "date", Value: 1}}, Options: options.Index().SetUnique(true).SetName("title_date_unique")},
			{Keys: bson.D{{Key: "date", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "category", Value: 1}}},
			{Keys: bson.D{{Key: "featured", Value: 1}, {Key: "date", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		s.Notices.col: {
			{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "publish_date", Value: -1}}},
			{Keys: bson.D{{Key: "category", Value: 1}}},
			{Keys: bson.D{{Key: "priority", Value: 1}}},
			{Keys: bson.D{{Key: "expiry_date", Value: 1}}},
			{Keys: bson.D{{Key: "is_pinned", Value: -1}, {Key: "publish_date", Value: -1}}},
		},
	}
	for col, models := range specs {
		if _, err := col.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", col.Name(), err)
		}
	}
	return nil
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}

var immutableFields = map[string]bool{
	"_id":        true,
	"created_by": true,
	"created_at": true,
}

// partialUpdate builds a $set/$unset document holding only the named fields of
// doc, read through its bson encoding. Fields the encoding omits are unset.
// Immutable fields are never written.
func partialUpdate(doc any, fields []string) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode update: %w", err)
	}
	var encoded bson.M
	if err := bson.Unmarshal(raw, &encoded); err != nil {
		return nil, fmt.Errorf("decode update: %w", err)
	}

	set, unset := bson.M{}, bson.M{}
	for _, f := range append(append([]string{}, fields...), "updated_at") {
		if immutableFields[f] {
			continue
		}
		if v, ok := encoded[f]; ok {
			set[f] = v
		} else {
			unset[f] = ""
		}
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update, nil
}
