package controllers_test

import (
	"context"
	"path"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/church-cms-go/models"
	"github.com/phillip/church-cms-go/repository"
	"github.com/phillip/church-cms-go/utils"
)

// memEvents is an in-memory EventStore. lastQuery records the most recent List call.
type memEvents struct {
	mu        sync.Mutex
	events    map[primitive.ObjectID]*models.Event
	lastQuery models.EventQuery
}

func newMemEvents() *memEvents {
	return &memEvents{events: map[primitive.ObjectID]*models.Event{}}
}

func (m *memEvents) put(ev *models.Event) *models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.ID.IsZero() {
		ev.ID = primitive.NewObjectID()
	}
	ev.EnsureCollections()
	cp := *ev
	m.events[ev.ID] = &cp
	return ev
}

func (m *memEvents) stored(id primitive.ObjectID) models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.events[id]
}

func (m *memEvents) List(_ context.Context, q models.EventQuery, now time.Time) ([]models.Event, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.Normalize()
	m.lastQuery = q
	out := []models.Event{}
	if q.NoMatch {
		return out, 0, nil
	}
	for _, ev := range m.events {
		cp := *ev
		cp.Refresh(now)
		out = append(out, cp)
	}
	return out, int64(len(out)), nil
}

func (m *memEvents) Featured(ctx context.Context, now time.Time, limit int) ([]models.Event, error) {
	return m.Upcoming(ctx, now, limit, "")
}

func (m *memEvents) Upcoming(_ context.Context, now time.Time, limit int, category models.EventCategory) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Event{}
	for _, ev := range m.events {
		if category != "" && ev.Category != category {
			continue
		}
		if models.DeriveEventStatus(ev.Date, ev.Status, now) == models.StatusUpcoming && len(out) < limit {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (m *memEvents) Get(_ context.Context, id primitive.ObjectID) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *ev
	return &cp, nil
}

func (m *memEvents) Create(_ context.Context, ev *models.Event) error {
	m.mu.Lock()
	for _, other := range m.events {
		if other.Title == ev.Title && other.Date.Equal(ev.Date) {
			m.mu.Unlock()
			return repository.ErrDuplicate
		}
	}
	m.mu.Unlock()
	m.put(ev)
	return nil
}

func (m *memEvents) Update(_ context.Context, ev *models.Event, _ ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[ev.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *ev
	m.events[ev.ID] = &cp
	return nil
}

func (m *memEvents) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.events, id)
	return nil
}

func (m *memEvents) Register(_ context.Context, id, userID primitive.ObjectID, now time.Time) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if err := ev.Register(userID, now); err != nil {
		return nil, err
	}
	cp := *ev
	return &cp, nil
}

func (m *memEvents) Stats(_ context.Context, _ time.Time) (*models.EventStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &models.EventStats{Total: int64(len(m.events))}, nil
}

type memNotices struct {
	mu        sync.Mutex
	notices   map[primitive.ObjectID]*models.Notice
	lastQuery models.NoticeQuery
}

func newMemNotices() *memNotices {
	return &memNotices{notices: map[primitive.ObjectID]*models.Notice{}}
}

func (m *memNotices) put(n *models.Notice) *models.Notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	n.EnsureCollections()
	cp := *n
	m.notices[n.ID] = &cp
	return n
}

func (m *memNotices) List(_ context.Context, q models.NoticeQuery, now time.Time) ([]models.Notice, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.Normalize()
	m.lastQuery = q
	out := []models.Notice{}
	for _, n := range m.notices {
		if q.PublicOnly && !models.NoticeVisibleAt(n.IsActive, n.PublishDate, n.ExpiryDate, now) {
			continue
		}
		out = append(out, *n)
	}
	return out, int64(len(out)), nil
}

func (m *memNotices) Active(_ context.Context, now time.Time, limit int, _ models.NoticeCategory, _ models.Priority) ([]models.Notice, error) {
	out, _, err := m.List(context.Background(), models.NoticeQuery{PublicOnly: true}, now)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (m *memNotices) Get(_ context.Context, id primitive.ObjectID) (*models.Notice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notices[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *n
	cp.ReadBy = append([]models.ReadReceipt{}, n.ReadBy...)
	return &cp, nil
}

func (m *memNotices) Create(_ context.Context, n *models.Notice) error {
	m.put(n)
	return nil
}

func (m *memNotices) Update(_ context.Context, n *models.Notice, _ ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notices[n.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *n
	m.notices[n.ID] = &cp
	return nil
}

func (m *memNotices) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notices[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.notices, id)
	return nil
}

func (m *memNotices) MarkRead(_ context.Context, id, userID primitive.ObjectID, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notices[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	return n.MarkRead(userID, now), nil
}

func (m *memNotices) Stats(_ context.Context, _ time.Time) (*models.NoticeStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &models.NoticeStats{Total: int64(len(m.notices))}, nil
}

type memUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[primitive.ObjectID]*models.User{}}
}

func (m *memUsers) put(u *models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	cp := *u
	m.users[u.ID] = &cp
	return u
}

func (m *memUsers) List(_ context.Context, q models.UserQuery) ([]models.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.User{}
	for _, u := range m.users {
		if q.MembersOnly && u.Role != models.RoleMember && u.Role != models.RoleLeader {
			continue
		}
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (m *memUsers) Get(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = models.NormalizeEmail(email)
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) EmailTaken(_ context.Context, email string, except primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == models.NormalizeEmail(email) && u.ID != except {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) Create(ctx context.Context, u *models.User) error {
	if taken, _ := m.EmailTaken(ctx, u.Email, primitive.NilObjectID); taken {
		return repository.ErrDuplicate
	}
	m.put(u)
	return nil
}

func (m *memUsers) Update(_ context.Context, u *models.User, _ ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memUsers) TouchLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

func (m *memUsers) Stats(_ context.Context) (*models.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &models.UserStats{Total: int64(len(m.users))}, nil
}

// memFiles records saves and deletes instead of touching disk.
type memFiles struct {
	mu      sync.Mutex
	saved   []string
	deleted []string
}

func (f *memFiles) Save(_ context.Context, policy utils.UploadPolicy, in *utils.Incoming) (utils.StoredFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := utils.GenerateFilename(policy.Prefix, in.Ext)
	p := path.Join("uploads", policy.Dir, name)
	f.saved = append(f.saved, p)
	return utils.StoredFile{
		Filename:     name,
		OriginalName: in.Header.Filename,
		Path:         p,
		Size:         in.Header.Size,
		MimeType:     in.MimeType,
	}, nil
}

func (f *memFiles) Delete(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *memFiles) deletedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.deleted...)
}
