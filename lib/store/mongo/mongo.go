// Package mongo implements the interface for MongoDB.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tarancss/zecdev/lib/store"
)

const (
	database   = "faucet"
	collection = "history"
)

// Mongo implements a connection to a MongoDB database.
type Mongo struct {
	c *mgo.Client
}

// New returns a Mongo client connection to the specified MongoDB database uri.
func New(uri string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:gomnd // 5 seconds timeout
	defer cancel()

	c, err := mgo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to mongo DB in %s: %w", uri, err)
	}

	if err = c.Ping(ctx, nil); err != nil {
		_ = c.Disconnect(context.Background())

		return nil, fmt.Errorf("error connecting to mongo DB: %w", err)
	}

	return &Mongo{c: c}, nil
}

// CloseMongo will close a database connection. Must be called at termination time.
func (m *Mongo) CloseMongo() error {
	return m.c.Disconnect(context.Background())
}

func (m *Mongo) col() *mgo.Collection {
	return m.c.Database(database).Collection(collection)
}

// AddTx saves a transaction record.
func (m *Mongo) AddTx(ctx context.Context, tx store.TxRecord) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	if _, err := m.col().InsertOne(ctx, tx); err != nil {
		return fmt.Errorf("could not insert tx %s in db: %w", tx.TxID, err)
	}

	return nil
}

// GetTxs returns the last limit records, oldest first. A limit <= 0 returns all of them.
func (m *Mongo) GetTxs(ctx context.Context, limit int) ([]store.TxRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := m.col().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("error getting mongo DB history: %w", err)
	}

	txs := []store.TxRecord{}
	if err = cur.All(ctx, &txs); err != nil {
		return nil, fmt.Errorf("error decoding mongo DB history: %w", err)
	}

	store.Reverse(txs)

	return txs, nil
}
