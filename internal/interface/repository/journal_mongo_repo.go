package repository

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"flightsurety-service/internal/domain/entity"
	"flightsurety-service/internal/domain/repository"
)

// MongoJournalRepository implements the JournalRepository interface.
// Append runs in a multi-document transaction and needs a replica set.
type MongoJournalRepository struct {
	client *mongo.Client
	events *mongo.Collection
	roots  *mongo.Collection
}

// NewMongoJournalRepository creates a new MongoDB journal repository
func NewMongoJournalRepository(db *mongo.Database) repository.JournalRepository {
	events := db.Collection("ledger_events")
	roots := db.Collection("ledger_roots")

	ctx := context.Background()

	// Record index and event id are unique
	events.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.M{"index": 1},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.M{"eventId": 1},
			Options: options.Index().SetUnique(true),
		},
	})

	roots.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"toIndex": 1},
		Options: options.Index().SetUnique(true),
	})

	return &MongoJournalRepository{
		client: db.Client(),
		events: events,
		roots:  roots,
	}
}

// Append inserts records and roots in one transaction
func (r *MongoJournalRepository) Append(ctx context.Context, records []entity.JournalRecord, roots []entity.JournalRoot) error {
	session, err := r.client.StartSession()
	if err != nil {
		return errors.Wrap(err, "MongoJournalRepository.Append: start session")
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if len(records) > 0 {
			docs := make([]interface{}, 0, len(records))
			for _, rec := range records {
				docs = append(docs, rec)
			}
			if _, err := r.events.InsertMany(sc, docs); err != nil {
				return nil, err
			}
		}
		if len(roots) > 0 {
			docs := make([]interface{}, 0, len(roots))
			for _, root := range roots {
				docs = append(docs, root)
			}
			if _, err := r.roots.InsertMany(sc, docs); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return errors.Wrap(err, "MongoJournalRepository.Append")
}

// Records returns all records in index order
func (r *MongoJournalRepository) Records(ctx context.Context) ([]entity.JournalRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "index", Value: 1}})
	cursor, err := r.events.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "MongoJournalRepository.Records")
	}
	defer cursor.Close(ctx)

	records := []entity.JournalRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, errors.Wrap(err, "MongoJournalRepository.Records: decode")
	}
	return records, nil
}

// Roots returns all sealed roots in order
func (r *MongoJournalRepository) Roots(ctx context.Context) ([]entity.JournalRoot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "toIndex", Value: 1}})
	cursor, err := r.roots.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "MongoJournalRepository.Roots")
	}
	defer cursor.Close(ctx)

	roots := []entity.JournalRoot{}
	if err := cursor.All(ctx, &roots); err != nil {
		return nil, errors.Wrap(err, "MongoJournalRepository.Roots: decode")
	}
	return roots, nil
}
