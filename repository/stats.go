package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"github.com/phillip/church-cms-go/models"
)

type counter struct {
	dst    *int64
	filter bson.M
}

type grouping struct {
	dst      *[]models.GroupCount
	pipeline mongo.Pipeline
}

// gather runs the counts and aggregations of a stats report concurrently and
// fails with the first error.
func gather(ctx context.Context, col *mongo.Collection, counts []counter, groups []grouping) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range counts {
		g.Go(func() error {
			n, err := col.CountDocuments(ctx, c.filter)
			if err != nil {
				return fmt.Errorf("count %s: %w", col.Name(), err)
			}
			*c.dst = n
			return nil
		})
	}
	for _, gr := range groups {
		g.Go(func() error {
			rows, err := groupCounts(ctx, col, gr.pipeline)
			if err != nil {
				return err
			}
			*gr.dst = rows
			return nil
		})
	}
	return g.Wait()
}

// groupBy counts documents per value of field, largest group first.
func groupBy(field string, pre ...bson.D) mongo.Pipeline {
	pipeline := mongo.Pipeline(pre)
	return append(pipeline,
		bson.D{{Key: "$group", Value: bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	)
}

func groupCounts(ctx context.Context, col *mongo.Collection, pipeline mongo.Pipeline) ([]models.GroupCount, error) {
	cur, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", col.Name(), err)
	}
	out := []models.GroupCount{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s aggregate: %w", col.Name(), err)
	}
	return out, nil
}
