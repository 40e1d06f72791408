package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phillip/church-cms-go/models"
)

const registerAttempts = 3

type EventRepo struct {
	col   *mongo.Collection
	users *UserRepo
}

// List returns one page of events matching q, as of now, and the total match count.
func (r *EventRepo) List(ctx context.Context, q models.EventQuery, now time.Time) ([]models.Event, int64, error) {
	q.Normalize()
	if q.NoMatch {
		return []models.Event{}, 0, nil
	}

	filter := buildEventFilter(q, now)
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	opts := options.Find().
		SetSort(eventSorts.sortSpec(q.Sort, defaultEventSort)).
		SetSkip(q.Skip()).
		SetLimit(int64(q.Limit))
	events, err := r.find(ctx, filter, opts, now)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// Featured returns up to limit featured events that are still upcoming.
func (r *EventRepo) Featured(ctx context.Context, now time.Time, limit int) ([]models.Event, error) {
	filter := eventStatusClause(models.StatusUpcoming, now)
	filter["featured"] = true
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, filter, opts, now)
}

// Upcoming returns the next limit upcoming events, optionally in one category.
func (r *EventRepo) Upcoming(ctx context.Context, now time.Time, limit int, category models.EventCategory) ([]models.Event, error) {
	filter := eventStatusClause(models.StatusUpcoming, now)
	if category != "" {
		filter["category"] = category
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, filter, opts, now)
}

func (r *EventRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions, now time.Time) ([]models.Event, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	events := []models.Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	ptrs := make([]*models.Event, len(events))
	for i := range events {
		events[i].Refresh(now)
		ptrs[i] = &events[i]
	}
	if err := r.populate(ctx, ptrs...); err != nil {
		return nil, err
	}
	return events, nil
}

// Get loads one event with its user references populated.
func (r *EventRepo) Get(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	var ev models.Event
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&ev); err != nil {
		return nil, translate(err)
	}
	if err := r.populate(ctx, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (r *EventRepo) Create(ctx context.Context, ev *models.Event) error {
	if ev.ID.IsZero() {
		ev.ID = primitive.NewObjectID()
	}
	ev.EnsureCollections()
	if _, err := r.col.InsertOne(ctx, ev); err != nil {
		return translate(err)
	}
	return r.populate(ctx, ev)
}

// Update writes only the named bson fields of ev, plus updated_at.
func (r *EventRepo) Update(ctx context.Context, ev *models.Event, fields ...string) error {
	update, err := partialUpdate(ev, fields)
	if err != nil {
		return err
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": ev.ID}, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return r.populate(ctx, ev)
}

func (r *EventRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// registrationFilter matches the event only while userID may still register.
func registrationFilter(id, userID primitive.ObjectID, now time.Time) bson.M {
	filter := eventStatusClause(models.StatusUpcoming, now)
	filter["_id"] = id
	filter["registration_required"] = true
	filter["attendees.user"] = bson.M{"$ne": userID}
	filter["$expr"] = bson.M{"$or": bson.A{
		bson.M{"$eq": bson.A{bson.M{"$ifNull": bson.A{"$max_attendees", nil}}, nil}},
		bson.M{"$lt": bson.A{"$current_attendees", "$max_attendees"}},
	}}
	return filter
}

// Register adds userID to the attendee list in a single conditional update, so
// concurrent registrations can never exceed capacity or duplicate a user. When
// the update matches nothing the event is reloaded to report why.
func (r *EventRepo) Register(ctx context.Context, id, userID primitive.ObjectID, now time.Time) (*models.Event, error) {
	update := bson.M{
		"$push": bson.M{"attendees": models.Attendee{User: userID, RegisteredAt: now}},
		"$inc":  bson.M{"current_attendees": 1},
		"$set":  bson.M{"updated_at": now},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	for attempt := 0; attempt < registerAttempts; attempt++ {
		var ev models.Event
		err := r.col.FindOneAndUpdate(ctx, registrationFilter(id, userID, now), update, opts).Decode(&ev)
		if err == nil {
			ev.Refresh(now)
			if err := r.populate(ctx, &ev); err != nil {
				return nil, err
			}
			return &ev, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("register attendee: %w", err)
		}

		current, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if reason := current.CheckRegistration(userID, now); reason != nil {
			return nil, reason
		}
		// the document changed between the update and the reload; try again
	}
	return nil, models.ErrEventFull
}

// Stats aggregates dashboard counters as of now.
func (r *EventRepo) Stats(ctx context.Context, now time.Time) (*models.EventStats, error) {
	stats := &models.EventStats{}
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	err := gather(ctx, r.col,
		[]counter{
			{&stats.Total, bson.M{}},
			{&stats.Upcoming, eventStatusClause(models.StatusUpcoming, now)},
			{&stats.Featured, bson.M{"featured": true}},
			{&stats.Completed, eventStatusClause(models.StatusCompleted, now)},
		},
		[]grouping{
			{&stats.ByCategory, groupBy("category")},
			{&stats.ByMonth, mongo.Pipeline{
				{{Key: "$match", Value: bson.M{"date": bson.M{"$gte": yearStart, "$lt": yearStart.AddDate(1, 0, 0)}}}},
				{{Key: "$group", Value: bson.M{"_id": bson.M{"$month": "$date"}, "count": bson.M{"$sum": 1}}}},
				{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
			}},
		},
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *EventRepo) populate(ctx context.Context, events ...*models.Event) error {
	if r.users == nil || len(events) == 0 {
		return nil
	}
	ids := make([]primitive.ObjectID, 0, 2*len(events))
	for _, ev := range events {
		ids = append(ids, ev.CreatedBy, ev.Organizer)
	}
	summaries, err := r.users.Summaries(ctx, ids)
	if err != nil {
		return err
	}
	for _, ev := range events {
		ev.CreatedByUser = summaries[ev.CreatedBy]
		ev.OrganizerUser = summaries[ev.Organizer]
	}
	return nil
}
