package store

import (
	"context"
	goerrors "errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/procflow/procflow/pkg/errors"
	"github.com/procflow/procflow/pkg/table"
)

const processCollection = "processes"

// MongoStore persists processes in a MongoDB collection, one document per
// process with the name as _id.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "connect to store")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "ping store")
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(processCollection),
	}, nil
}

// Save upserts the process document, preserving CreatedAt on overwrite.
func (s *MongoStore) Save(ctx context.Context, name string, rows []table.Row) (Process, error) {
	if err := errors.ValidateProcessName(name); err != nil {
		return Process{}, err
	}

	now := time.Now().UTC()
	update := bson.M{
		"$set":         bson.M{"rows": rows, "updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := s.coll.UpdateByID(ctx, name, update, opts); err != nil {
		return Process{}, errors.Wrap(errors.ErrCodeInternal, err, "save process %q", name)
	}
	return s.Get(ctx, name)
}

// Get returns the process saved under name.
func (s *MongoStore) Get(ctx context.Context, name string) (Process, error) {
	var p Process
	err := s.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&p)
	if goerrors.Is(err, mongo.ErrNoDocuments) {
		return Process{}, errors.New(errors.ErrCodeNotFound, "process %q not found", name)
	}
	if err != nil {
		return Process{}, errors.Wrap(errors.ErrCodeInternal, err, "load process %q", name)
	}
	return p, nil
}

// List returns all processes sorted by name.
func (s *MongoStore) List(ctx context.Context) ([]Process, error) {
	cursor, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "list processes")
	}
	defer cursor.Close(ctx)

	var out []Process
	if err := cursor.All(ctx, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode processes")
	}
	return out, nil
}

// Delete removes a process document.
func (s *MongoStore) Delete(ctx context.Context, name string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": name})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "delete process %q", name)
	}
	if res.DeletedCount == 0 {
		return errors.New(errors.ErrCodeNotFound, "process %q not found", name)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
