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
	"github.com/phillip/church-cms-go/utils"
)

type UserRepo struct {
	col *mongo.Collection
}

func (r *UserRepo) List(ctx context.Context, q models.UserQuery) ([]models.User, int64, error) {
	q.Normalize()
	if q.NoMatch {
		return []models.User{}, 0, nil
	}

	filter := buildUserFilter(q)
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	def := defaultUserSort
	if q.MembersOnly {
		def = "name"
	}
	cur, err := r.col.Find(ctx, filter, options.Find().
		SetSort(userSorts.sortSpec(q.Sort, def)).
		SetSkip(q.Skip()).
		SetLimit(int64(q.Limit)))
	if err != nil {
		return nil, 0, fmt.Errorf("find users: %w", err)
	}
	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, fmt.Errorf("decode users: %w", err)
	}
	return users, total, nil
}

func (r *UserRepo) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": models.NormalizeEmail(email)})
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// EmailTaken reports whether another user already owns email.
func (r *UserRepo) EmailTaken(ctx context.Context, email string, except primitive.ObjectID) (bool, error) {
	filter := bson.M{"email": models.NormalizeEmail(email)}
	if !except.IsZero() {
		filter["_id"] = bson.M{"$ne": except}
	}
	n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return n > 0, nil
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Email = models.NormalizeEmail(u.Email)
	if u.Ministries == nil {
		u.Ministries = []models.Ministry{}
	}
	if _, err := r.col.InsertOne(ctx, u); err != nil {
		return translate(err)
	}
	return nil
}

func (r *UserRepo) Update(ctx context.Context, u *models.User, fields ...string) error {
	update, err := partialUpdate(u, fields)
	if err != nil {
		return err
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": u.ID}, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLogin stamps last_login without bumping updated_at.
func (r *UserRepo) TouchLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_login": at}})
	if err != nil {
		return fmt.Errorf("stamp last login: %w", err)
	}
	return nil
}

// Summaries loads {id, name, email, role} for every distinct non-zero id.
func (r *UserRepo) Summaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.UserSummary, error) {
	out := map[primitive.ObjectID]*models.UserSummary{}
	seen := map[primitive.ObjectID]bool{}
	in := bson.A{}
	for _, id := range ids {
		if id.IsZero() || seen[id] {
			continue
		}
		seen[id] = true
		in = append(in, id)
	}
	if len(in) == 0 {
		return out, nil
	}

	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": in}},
		options.Find().SetProjection(bson.M{"name": 1, "email": 1, "role": 1}))
	if err != nil {
		return nil, fmt.Errorf("load user summaries: %w", err)
	}
	var rows []models.UserSummary
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode user summaries: %w", err)
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

func (r *UserRepo) Stats(ctx context.Context) (*models.UserStats, error) {
	stats := &models.UserStats{}
	err := gather(ctx, r.col,
		[]counter{
			{&stats.Total, bson.M{}},
			{&stats.Active, bson.M{"is_active": true}},
		},
		[]grouping{
			{&stats.ByRole, groupBy("role")},
			{&stats.ByMinistry, groupBy("ministries", bson.D{{Key: "$unwind", Value: "$ministries"}})},
		},
	)
	if err != nil {
		return nil, err
	}
	stats.Inactive = stats.Total - stats.Active
	return stats, nil
}

// EnsureAdmin creates the bootstrap administrator when no admin account
// exists. It reports whether an account was created.
func (r *UserRepo) EnsureAdmin(ctx context.Context, name, email, password string, now time.Time) (bool, error) {
	admins, err := r.col.CountDocuments(ctx, bson.M{"role": models.RoleAdmin}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if admins > 0 {
		return false, nil
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}
	admin := &models.User{
		Name:           name,
		Email:          email,
		PasswordHash:   hash,
		Role:           models.RoleAdmin,
		MembershipDate: now,
		Ministries:     []models.Ministry{models.Ministry("Administrative Team")},
		Preferences:    models.DefaultPreferences(),
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := r.Create(ctx, admin); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
