// Package mongostore is the MongoDB event store.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/focusnest/study-service/internal/achievement"
	"github.com/focusnest/study-service/internal/profile"
	"github.com/focusnest/study-service/internal/study"
)

const (
	tasksCollection        = "tasks"
	sessionsCollection     = "pomodoro_sessions"
	statsCollection        = "study_stats"
	treesCollection        = "focus_trees"
	achievementsCollection = "achievements"
	profilesCollection     = "profiles"
)

// Store implements the event store on a MongoDB database.
type Store struct {
	db *mongo.Database
}

// New wraps db. Call EnsureIndexes once before serving traffic.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// EnsureIndexes creates the unique indexes the store relies on, including the
// one that limits achievements to a single document per badge type.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := func(field string) mongo.IndexModel {
		return mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true),
		}
	}
	byDate := mongo.IndexModel{Keys: bson.D{{Key: "date", Value: 1}}}

	indexes := map[string][]mongo.IndexModel{
		tasksCollection:        {unique("id"), byDate},
		sessionsCollection:     {unique("id"), {Keys: bson.D{{Key: "session_type", Value: 1}, {Key: "date", Value: 1}}}},
		statsCollection:        {unique("id"), byDate},
		treesCollection:        {unique("id"), byDate},
		achievementsCollection: {unique("id"), unique("badge_type")},
		profilesCollection:     {unique("id")},
	}
	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *Store) insert(ctx context.Context, collection string, doc any, conflict error) error {
	_, err := s.col(collection).InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return conflict
	}
	return err
}

func find[T any](ctx context.Context, c *mongo.Collection, filter bson.M, sort bson.D) ([]T, error) {
	cur, err := c.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	out := make([]T, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func countDocs(ctx context.Context, c *mongo.Collection, filter bson.M) (int, error) {
	n, err := c.CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func dateFilter(m bson.M, exact, from, to string) bson.M {
	cond := bson.M{}
	if exact != "" {
		cond["$eq"] = exact
	}
	if from != "" {
		cond["$gte"] = from
	}
	if to != "" {
		cond["$lte"] = to
	}
	if len(cond) > 0 {
		m["date"] = cond
	}
	return m
}

var (
	newestFirst = bson.D{{Key: "created_at", Value: -1}}
	oldestFirst = bson.D{{Key: "created_at", Value: 1}}
)

// ===== Tasks =====

func taskFilter(f study.TaskFilter) bson.M {
	m := dateFilter(bson.M{}, f.Date, f.From, f.To)
	if f.Completed != nil {
		m["completed"] = *f.Completed
	}
	return m
}

func (s *Store) CreateTask(ctx context.Context, t study.Task) error {
	return s.insert(ctx, tasksCollection, t, study.ErrConflict)
}

func (s *Store) GetTask(ctx context.Context, id string) (study.Task, error) {
	var t study.Task
	err := s.col(tasksCollection).FindOne(ctx, bson.M{"id": id}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return study.Task{}, study.ErrNotFound
	}
	return t, err
}

func (s *Store) ListTasks(ctx context.Context, f study.TaskFilter) ([]study.Task, error) {
	return find[study.Task](ctx, s.col(tasksCollection), taskFilter(f), oldestFirst)
}

func (s *Store) CountTasks(ctx context.Context, f study.TaskFilter) (int, error) {
	return countDocs(ctx, s.col(tasksCollection), taskFilter(f))
}

func (s *Store) UpdateTask(ctx context.Context, id string, patch study.TaskPatch) (study.Task, error) {
	set := bson.M{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Subject != nil {
		set["subject"] = *patch.Subject
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Completed != nil {
		set["completed"] = *patch.Completed
	}
	if patch.Priority != nil {
		set["priority"] = *patch.Priority
	}
	if patch.Date != nil {
		set["date"] = *patch.Date
	}
	if patch.DurationMinutes != nil {
		set["duration_minutes"] = *patch.DurationMinutes
	}
	if len(set) == 0 {
		return s.GetTask(ctx, id)
	}

	var t study.Task
	err := s.col(tasksCollection).FindOneAndUpdate(ctx,
		bson.M{"id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return study.Task{}, study.ErrNotFound
	}
	return t, err
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.col(tasksCollection).DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return study.ErrNotFound
	}
	return nil
}

// ===== Sessions =====

func sessionFilter(f study.SessionFilter) bson.M {
	m := dateFilter(bson.M{}, f.Date, f.From, f.To)
	if f.SessionType != "" {
		m["session_type"] = f.SessionType
	}
	return m
}

func (s *Store) CreateSession(ctx context.Context, fs study.FocusSession) error {
	return s.insert(ctx, sessionsCollection, fs, study.ErrConflict)
}

func (s *Store) ListSessions(ctx context.Context, f study.SessionFilter) ([]study.FocusSession, error) {
	return find[study.FocusSession](ctx, s.col(sessionsCollection), sessionFilter(f), newestFirst)
}

func (s *Store) CountSessions(ctx context.Context, f study.SessionFilter) (int, error) {
	return countDocs(ctx, s.col(sessionsCollection), sessionFilter(f))
}

func (s *Store) DistinctSessionDates(ctx context.Context, f study.SessionFilter) ([]string, error) {
	values, err := s.col(sessionsCollection).Distinct(ctx, "date", sessionFilter(f))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if d, ok := v.(string); ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) SumSessionMinutes(ctx context.Context, f study.SessionFilter) (int, error) {
	cur, err := s.col(sessionsCollection).Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: sessionFilter(f)}},
		{{Key: "$group", Value: bson.M{"_id": nil, "minutes": bson.M{"$sum": "$duration_minutes"}}}},
	})
	if err != nil {
		return 0, err
	}
	var rows []struct {
		Minutes int `bson:"minutes"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Minutes, nil
}

// ===== Study stats =====

func statFilter(f study.StatFilter) bson.M {
	m := dateFilter(bson.M{}, f.Date, f.From, f.To)
	if f.Subject != "" {
		m["subject"] = f.Subject
	}
	return m
}

func statGroup(key any) bson.D {
	return bson.D{{Key: "$group", Value: bson.M{
		"_id":       key,
		"questions": bson.M{"$sum": "$questions_solved"},
		"correct":   bson.M{"$sum": "$correct_answers"},
		"minutes":   bson.M{"$sum": "$time_spent_minutes"},
	}}}
}

func (s *Store) CreateStat(ctx context.Context, st study.StudyStat) error {
	return s.insert(ctx, statsCollection, st, study.ErrConflict)
}

func (s *Store) ListStats(ctx context.Context, f study.StatFilter) ([]study.StudyStat, error) {
	return find[study.StudyStat](ctx, s.col(statsCollection), statFilter(f), newestFirst)
}

func (s *Store) SumStats(ctx context.Context, f study.StatFilter) (study.StatTotals, error) {
	cur, err := s.col(statsCollection).Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: statFilter(f)}},
		statGroup(nil),
	})
	if err != nil {
		return study.StatTotals{}, err
	}
	var rows []study.StatTotals
	if err := cur.All(ctx, &rows); err != nil {
		return study.StatTotals{}, err
	}
	if len(rows) == 0 {
		return study.StatTotals{}, nil
	}
	return rows[0], nil
}

func (s *Store) SumStatsBySubject(ctx context.Context, f study.StatFilter) ([]study.SubjectTotals, error) {
	cur, err := s.col(statsCollection).Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: statFilter(f)}},
		statGroup("$subject"),
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	})
	if err != nil {
		return nil, err
	}
	out := make([]study.SubjectTotals, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ===== Focus trees =====

func (s *Store) CreateTree(ctx context.Context, t study.FocusTree) error {
	return s.insert(ctx, treesCollection, t, study.ErrConflict)
}

func (s *Store) ListTrees(ctx context.Context, f study.TreeFilter) ([]study.FocusTree, error) {
	m := dateFilter(bson.M{}, f.Date, "", "")
	if f.Status != "" {
		m["status"] = f.Status
	}
	return find[study.FocusTree](ctx, s.col(treesCollection), m, newestFirst)
}

// ===== Achievements =====

func (s *Store) CreateAchievement(ctx context.Context, a achievement.Achievement) error {
	return s.insert(ctx, achievementsCollection, a, achievement.ErrAlreadyEarned)
}

func (s *Store) ListAchievements(ctx context.Context) ([]achievement.Achievement, error) {
	return find[achievement.Achievement](ctx, s.col(achievementsCollection), bson.M{}, bson.D{{Key: "earned_date", Value: 1}})
}

func (s *Store) CountAchievements(ctx context.Context) (int, error) {
	return countDocs(ctx, s.col(achievementsCollection), bson.M{})
}

// ===== Profiles =====

func (s *Store) GetProfile(ctx context.Context, id string) (profile.Profile, error) {
	var p profile.Profile
	err := s.col(profilesCollection).FindOne(ctx, bson.M{"id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return profile.Profile{}, profile.ErrNotFound
	}
	return p, err
}

func (s *Store) SaveProfileSettings(ctx context.Context, id string, settings profile.NotificationSettings, now time.Time) error {
	_, err := s.col(profilesCollection).UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{
			"$set": bson.M{
				"notification_settings": settings,
				"updated_at":            now,
			},
			"$setOnInsert": bson.M{
				"experience":          0,
				"total_focus_minutes": 0,
				"created_at":          now,
			},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *Store) IncrementProfile(ctx context.Context, id string, experience, focusMinutes int, now time.Time) error {
	_, err := s.col(profilesCollection).UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{
			"$inc": bson.M{
				"experience":          experience,
				"total_focus_minutes": focusMinutes,
			},
			"$set": bson.M{"updated_at": now},
			"$setOnInsert": bson.M{
				"notification_settings": profile.DefaultNotificationSettings(),
				"created_at":            now,
			},
		},
		options.Update().SetUpsert(true),
	)
	return err
}
