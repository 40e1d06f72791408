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

type NoticeRepo struct {
	col   *mongo.Collection
	users *UserRepo
}

func (r *NoticeRepo) List(ctx context.Context, q models.NoticeQuery, now time.Time) ([]models.Notice, int64, error) {
	q.Normalize()
	if q.NoMatch {
		return []models.Notice{}, 0, nil
	}

	filter := buildNoticeFilter(q, now)
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count notices: %w", err)
	}

	cur, err := r.col.Find(ctx, filter, options.Find().
		SetSort(noticeSorts.sortSpec(q.Sort, defaultNoticeSort)).
		SetSkip(q.Skip()).
		SetLimit(int64(q.Limit)))
	if err != nil {
		return nil, 0, fmt.Errorf("find notices: %w", err)
	}
	notices, err := r.decode(ctx, cur, now)
	if err != nil {
		return nil, 0, err
	}
	return notices, total, nil
}

// Active returns currently visible notices ordered pinned first, then by
// priority rank, then newest.
func (r *NoticeRepo) Active(ctx context.Context, now time.Time, limit int, category models.NoticeCategory, priority models.Priority) ([]models.Notice, error) {
	match := noticeVisibleClause(now)
	if category != "" {
		match["category"] = category
	}
	if priority != "" {
		match["priority"] = priority
	}

	ranks := make(bson.A, len(models.Priorities))
	for i, p := range models.Priorities {
		ranks[i] = p
	}
	cur, err := r.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$addFields", Value: bson.M{"priority_rank": bson.M{"$indexOfArray": bson.A{ranks, "$priority"}}}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "is_pinned", Value: -1},
			{Key: "priority_rank", Value: -1},
			{Key: "publish_date", Value: -1},
			{Key: "_id", Value: -1},
		}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$project", Value: bson.M{"priority_rank": 0}}},
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate active notices: %w", err)
	}
	return r.decode(ctx, cur, now)
}

func (r *NoticeRepo) decode(ctx context.Context, cur *mongo.Cursor, now time.Time) ([]models.Notice, error) {
	notices := []models.Notice{}
	if err := cur.All(ctx, &notices); err != nil {
		return nil, fmt.Errorf("decode notices: %w", err)
	}
	ptrs := make([]*models.Notice, len(notices))
	for i := range notices {
		notices[i].Refresh(now)
		ptrs[i] = &notices[i]
	}
	if err := r.populate(ctx, ptrs...); err != nil {
		return nil, err
	}
	return notices, nil
}

func (r *NoticeRepo) Get(ctx context.Context, id primitive.ObjectID) (*models.Notice, error) {
	var n models.Notice
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&n); err != nil {
		return nil, translate(err)
	}
	if err := r.populate(ctx, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NoticeRepo) Create(ctx context.Context, n *models.Notice) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	n.EnsureCollections()
	if _, err := r.col.InsertOne(ctx, n); err != nil {
		return translate(err)
	}
	return r.populate(ctx, n)
}

func (r *NoticeRepo) Update(ctx context.Context, n *models.Notice, fields ...string) error {
	update, err := partialUpdate(n, fields)
	if err != nil {
		return err
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": n.ID}, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return r.populate(ctx, n)
}

func (r *NoticeRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete notice: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkRead records a receipt for userID unless one exists. It reports whether
// a receipt was added; a missing notice is ErrNotFound.
func (r *NoticeRepo) MarkRead(ctx context.Context, id, userID primitive.ObjectID, now time.Time) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "read_by.user": bson.M{"$ne": userID}},
		bson.M{"$push": bson.M{"read_by": models.ReadReceipt{User: userID, ReadAt: now}}},
	)
	if err != nil {
		return false, fmt.Errorf("mark notice read: %w", err)
	}
	if res.ModifiedCount > 0 {
		return true, nil
	}

	err = r.col.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, ErrNotFound
	}
	return false, err
}

func (r *NoticeRepo) Stats(ctx context.Context, now time.Time) (*models.NoticeStats, error) {
	stats := &models.NoticeStats{}
	err := gather(ctx, r.col,
		[]counter{
			{&stats.Total, bson.M{}},
			{&stats.Active, noticeVisibleClause(now)},
			{&stats.Expired, bson.M{"expiry_date": bson.M{"$lte": now}}},
			{&stats.Drafts, bson.M{"is_active": false}},
		},
		[]grouping{
			{&stats.ByCategory, groupBy("category")},
			{&stats.ByPriority, groupBy("priority")},
		},
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *NoticeRepo) populate(ctx context.Context, notices ...*models.Notice) error {
	if r.users == nil || len(notices) == 0 {
		return nil
	}
	ids := make([]primitive.ObjectID, len(notices))
	for i, n := range notices {
		ids[i] = n.CreatedBy
	}
	summaries, err := r.users.Summaries(ctx, ids)
	if err != nil {
		return err
	}
	for _, n := range notices {
		n.CreatedByUser = summaries[n.CreatedBy]
	}
	return nil
}
