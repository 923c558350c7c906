// Package mongo implements the balance store on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	balance "github.com/niobium-nz/balance"
	"github.com/niobium-nz/balance/accounting"
	"github.com/niobium-nz/balance/id"
	"github.com/niobium-nz/balance/store"
	"github.com/niobium-nz/balance/transaction"
	"github.com/niobium-nz/balance/types"
)

// Collection name constants.
const (
	colTransactions = "balance_transactions"
	colSnapshots    = "balance_snapshots"
	colDeltas       = "balance_deltas"
	colFrozen       = "balance_frozen"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to MongoDB and returns a Store on the named database.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("balance/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("balance/mongo: ping: %w", err)
	}
	return New(client, database), nil
}

// New creates a Store on an existing client.
func New(client *mongo.Client, database string) *Store {
	return &Store{
		client: client,
		db:     client.Database(database),
	}
}

// Database returns the underlying database handle for direct access.
func (s *Store) Database() *mongo.Database { return s.db }

// Migrate creates indexes for all balance collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.db.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("balance/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// ==================== Ledger Store ====================

func (s *Store) AppendTransactions(ctx context.Context, txns []*transaction.Transaction) error {
	docs := make([]any, 0, len(txns))
	for _, t := range txns {
		m, err := toTransactionModel(t)
		if err != nil {
			return err
		}
		docs = append(docs, m)
	}

	_, err := s.db.Collection(colTransactions).InsertMany(ctx, docs)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return balance.ErrDuplicateTransaction
		}
		return fmt.Errorf("balance/mongo: append transactions: %w", err)
	}
	return nil
}

func (s *Store) QueryTransactions(ctx context.Context, principal string, from, to time.Time) ([]*transaction.Transaction, error) {
	lo, hi := id.ChronoRange(from, to)

	// Ascending chrono-key order is reverse chronological: newest first.
	cur, err := s.db.Collection(colTransactions).Find(ctx,
		bson.M{
			"principal": principal,
			"id":        bson.M{"$gte": lo, "$lte": hi},
		},
		options.Find().SetSort(bson.D{{Key: "id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("balance/mongo: query transactions: %w", err)
	}
	defer cur.Close(ctx)

	result := make([]*transaction.Transaction, 0)
	for cur.Next(ctx) {
		var m transactionModel
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		t, err := fromTransactionModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, cur.Err()
}

// ==================== Snapshot Store ====================

func (s *Store) PutSnapshot(ctx context.Context, snap *accounting.Accounting) error {
	m, err := toSnapshotModel(snap)
	if err != nil {
		return err
	}

	_, err = s.db.Collection(colSnapshots).ReplaceOne(ctx,
		bson.M{"_id": m.DocID},
		m,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("balance/mongo: put snapshot: %w", err)
	}
	return nil
}

func (s *Store) GetSnapshot(ctx context.Context, principal string, end time.Time) (*accounting.Accounting, error) {
	var m snapshotModel
	err := s.db.Collection(colSnapshots).FindOne(ctx,
		bson.M{"_id": snapshotDocID(principal, end)},
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, balance.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("balance/mongo: get snapshot: %w", err)
	}
	return fromSnapshotModel(&m)
}

func (s *Store) LatestSnapshot(ctx context.Context, principal string, from, to time.Time) (*accounting.Accounting, error) {
	var m snapshotModel
	err := s.db.Collection(colSnapshots).FindOne(ctx,
		bson.M{
			"principal": principal,
			"day_end":   bson.M{"$gte": from, "$lte": to},
		},
		options.FindOne().SetSort(bson.D{{Key: "day_end", Value: -1}}),
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, balance.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("balance/mongo: latest snapshot: %w", err)
	}
	return fromSnapshotModel(&m)
}

// ==================== Delta Cache ====================

// AddDelta is atomic: the accumulation is a single $inc on a Decimal128
// field, so concurrent writers never lose updates.
func (s *Store) AddDelta(ctx context.Context, principal string, day time.Time, delta decimal.Decimal) (decimal.Decimal, error) {
	inc, err := toDecimal128(types.Round2(delta))
	if err != nil {
		return decimal.Zero, err
	}

	var m amountModel
	err = s.db.Collection(colDeltas).FindOneAndUpdate(ctx,
		bson.M{"_id": principal + "|" + types.DayKey(day)},
		bson.M{"$inc": bson.M{"amount": inc}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance/mongo: add delta: %w", err)
	}

	next, err := fromDecimal128(m.Amount)
	if err != nil {
		return decimal.Zero, err
	}
	return types.Round2(next), nil
}

func (s *Store) GetDelta(ctx context.Context, principal string, day time.Time) (decimal.Decimal, error) {
	return s.readAmount(ctx, colDeltas, principal+"|"+types.DayKey(day))
}

func (s *Store) SetDelta(ctx context.Context, principal string, day time.Time, value decimal.Decimal) error {
	amount, err := toDecimal128(types.Round2(value))
	if err != nil {
		return err
	}
	_, err = s.db.Collection(colDeltas).ReplaceOne(ctx,
		bson.M{"_id": principal + "|" + types.DayKey(day)},
		amountModel{DocID: principal + "|" + types.DayKey(day), Amount: amount},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("balance/mongo: set delta: %w", err)
	}
	return nil
}

func (s *Store) ClearDelta(ctx context.Context, principal string, day time.Time) error {
	_, err := s.db.Collection(colDeltas).DeleteOne(ctx,
		bson.M{"_id": principal + "|" + types.DayKey(day)},
	)
	if err != nil {
		return fmt.Errorf("balance/mongo: clear delta: %w", err)
	}
	return nil
}

// ==================== Frozen Funds ====================

func (s *Store) GetFrozen(ctx context.Context, principal string) (decimal.Decimal, error) {
	return s.readAmount(ctx, colFrozen, principal)
}

func (s *Store) AddFrozen(ctx context.Context, principal string, delta decimal.Decimal) (decimal.Decimal, error) {
	inc, err := toDecimal128(types.Round2(delta))
	if err != nil {
		return decimal.Zero, err
	}

	var m amountModel
	err = s.db.Collection(colFrozen).FindOneAndUpdate(ctx,
		bson.M{"_id": principal},
		bson.M{"$inc": bson.M{"amount": inc}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance/mongo: add frozen: %w", err)
	}

	next, err := fromDecimal128(m.Amount)
	if err != nil {
		return decimal.Zero, err
	}
	return types.Round2(next), nil
}

func (s *Store) DeleteFrozen(ctx context.Context, principal string) error {
	_, err := s.db.Collection(colFrozen).DeleteOne(ctx, bson.M{"_id": principal})
	if err != nil {
		return fmt.Errorf("balance/mongo: delete frozen: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

// readAmount reads a single Decimal128 amount, treating a missing document
// as zero.
func (s *Store) readAmount(ctx context.Context, col, docID string) (decimal.Decimal, error) {
	var m amountModel
	err := s.db.Collection(col).FindOne(ctx, bson.M{"_id": docID}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("balance/mongo: read amount: %w", err)
	}
	return fromDecimal128(m.Amount)
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
