// Package mongodb reads the academic records store from MongoDB collections
// partitioned by a courseId field.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	v1 "github.com/smart-student/stats-engine/internal/api/v1"
	"github.com/smart-student/stats-engine/internal/core/records"
	"github.com/smart-student/stats-engine/internal/core/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	CollectionCourses    = "courses"
	CollectionSections   = "sections"
	CollectionUsers      = "users"
	CollectionAttendance = "attendance"
	CollectionGrades     = "grades"
)

// Server error codes that mean the credentials were rejected.
const (
	codeUnauthorized         = 13
	codeAuthenticationFailed = 18
)

// Adapter implements storage.RecordStore for MongoDB.
type Adapter struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewAdapter connects to uri and pings the deployment within timeout.
// An empty uri or rejected credentials yield an error wrapping
// storage.ErrNotConfigured.
func NewAdapter(ctx context.Context, uri, database string, timeout time.Duration) (*Adapter, error) {
	if uri == "" || database == "" {
		return nil, fmt.Errorf("mongo: uri and database are required: %w", storage.ErrNotConfigured)
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri).SetTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", classify(err))
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", classify(err))
	}

	slog.Info("[Mongo] Connected", "database", database)
	return &Adapter{client: client, db: client.Database(database)}, nil
}

// NewAdapterFromDatabase wraps an existing database handle.
func NewAdapterFromDatabase(db *mongo.Database) *Adapter {
	return &Adapter{client: db.Client(), db: db}
}

func (a *Adapter) ListCourses(ctx context.Context) ([]v1.Course, error) {
	cursor, err := a.db.Collection(CollectionCourses).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", classify(err))
	}
	defer cursor.Close(ctx)

	var courses []v1.Course
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode course: %w", err)
		}
		plain := toDocument(doc)
		courses = append(courses, records.Course(docID(plain), plain))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating courses: %w", classify(err))
	}
	return courses, nil
}

func (a *Adapter) FindAttendance(ctx context.Context, courseID string, key storage.YearKey) ([]v1.AttendanceRecord, error) {
	docs, err := a.findPartition(ctx, CollectionAttendance, courseID, key)
	if err != nil {
		return nil, err
	}
	out := make([]v1.AttendanceRecord, 0, len(docs))
	for _, doc := range docs {
		out = append(out, records.Attendance(docID(doc), courseID, key.Year, doc))
	}
	return out, nil
}

func (a *Adapter) FindGrades(ctx context.Context, courseID string, key storage.YearKey) ([]v1.GradeRecord, error) {
	docs, err := a.findPartition(ctx, CollectionGrades, courseID, key)
	if err != nil {
		return nil, err
	}
	out := make([]v1.GradeRecord, 0, len(docs))
	for _, doc := range docs {
		if rec, ok := records.Grade(docID(doc), courseID, key.Year, doc); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// findPartition runs a typed equality match on year: numeric values match any
// BSON number type, string values only strings.
func (a *Adapter) findPartition(ctx context.Context, collection, courseID string, key storage.YearKey) ([]records.Document, error) {
	var year interface{} = key.Year
	if key.AsString {
		year = strconv.Itoa(key.Year)
	}

	cursor, err := a.db.Collection(collection).Find(ctx,
		bson.M{"courseId": courseID, "year": year},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s of course %s (year %s): %w", collection, courseID, key, classify(err))
	}
	defer cursor.Close(ctx)

	var docs []records.Document
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s document: %w", collection, err)
		}
		docs = append(docs, toDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s of course %s: %w", collection, courseID, classify(err))
	}
	return docs, nil
}

func (a *Adapter) CountSections(ctx context.Context, courseID string) (int, error) {
	n, err := a.db.Collection(CollectionSections).CountDocuments(ctx, bson.M{"courseId": courseID})
	if err != nil {
		return 0, fmt.Errorf("failed to count sections of course %s: %w", courseID, classify(err))
	}
	return int(n), nil
}

func (a *Adapter) CountUsersByRole(ctx context.Context) (map[v1.Role]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$role"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := a.db.Collection(CollectionUsers).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", classify(err))
	}
	defer cursor.Close(ctx)

	counts := make(map[v1.Role]int)
	for cursor.Next(ctx) {
		var row struct {
			Role  interface{} `bson:"_id"`
			Count int         `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode role count: %w", err)
		}
		counts[records.NormalizeRole(row.Role)] += row.Count
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating role counts: %w", classify(err))
	}
	return counts, nil
}

func (a *Adapter) Ping(ctx context.Context) error {
	return classify(a.client.Ping(ctx, nil))
}

// Close disconnects the client.
func (a *Adapter) Close(ctx context.Context) error {
	if err := a.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect mongo: %w", err)
	}
	slog.Info("[Mongo] Disconnected")
	return nil
}

// toDocument converts BSON maps to plain maps, recursively, so that the
// normalization adapter sees the same shapes it sees from JSON.
func toDocument(m bson.M) records.Document {
	out := make(records.Document, len(m))
	for k, v := range m {
		out[k] = plainValue(v)
	}
	return out
}

func plainValue(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.M:
		return toDocument(val)
	case bson.D:
		return toDocument(val.Map())
	case bson.A:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = plainValue(item)
		}
		return out
	}
	return v
}

// docID reads the document id: the `id` field if set, else `_id`.
func docID(doc records.Document) string {
	if id, ok := doc["id"].(string); ok && id != "" {
		return id
	}
	switch id := doc["_id"].(type) {
	case string:
		return id
	case primitive.ObjectID:
		return id.Hex()
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var se mongo.ServerError
	if errors.As(err, &se) && (se.HasErrorCode(codeUnauthorized) || se.HasErrorCode(codeAuthenticationFailed)) {
		return fmt.Errorf("%w: %v", storage.ErrNotConfigured, err)
	}
	return err
}
