package report

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	runsCollection = "runs"
	defaultLimit   = 20
	maxLimit       = 200
)

// MongoStore keeps runs in the "runs" collection.
type MongoStore struct {
	coll *mongo.Collection
}

var _ Recorder = (*MongoStore)(nil)

// NewMongoStore sets up the collection and a descending index on started_at.
func NewMongoStore(ctx context.Context, client *mongo.Client, dbName string) (*MongoStore, error) {
	coll := client.Database(dbName).Collection(runsCollection)
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "started_at", Value: -1}}},
		{Keys: bson.D{{Key: "scenario", Value: 1}, {Key: "started_at", Value: -1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("create run indexes: %w", err)
	}
	return &MongoStore{coll: coll}, nil
}

// Connect dials uri, pings it and returns a store on dbName. The returned
// func disconnects the client.
func Connect(ctx context.Context, uri, dbName string) (*MongoStore, func(context.Context) error, error) {
	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := cli.Ping(ctx, nil); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}
	store, err := NewMongoStore(ctx, cli, dbName)
	if err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, nil, err
	}
	return store, cli.Disconnect, nil
}

func (s *MongoStore) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("run without id")
	}
	_, err := s.coll.InsertOne(ctx, run)
	return err
}

// List returns the newest runs first. An empty scenario matches all.
func (s *MongoStore) List(ctx context.Context, scenario string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	filter := bson.D{}
	if scenario != "" {
		filter = bson.D{{Key: "scenario", Value: scenario}}
	}
	cur, err := s.coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, err
	}
	runs := make([]Run, 0, limit)
	if err := cur.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}
