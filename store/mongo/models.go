package mongo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/niobium-nz/balance/accounting"
	"github.com/niobium-nz/balance/id"
	"github.com/niobium-nz/balance/transaction"
	"github.com/niobium-nz/balance/types"
)

// transactionModel is the BSON document for a ledger transaction.
// Amounts are stored as Decimal128 so Mongo never coerces them to floats.
type transactionModel struct {
	Principal   string          `bson:"principal"`
	ID          string          `bson:"id"`
	Delta       bson.Decimal128 `bson:"delta"`
	Reason      int             `bson:"reason"`
	Remark      string          `bson:"remark,omitempty"`
	Reference   string          `bson:"reference,omitempty"`
	Correlation string          `bson:"correlation,omitempty"`
	Created     time.Time       `bson:"created"`
}

func toTransactionModel(t *transaction.Transaction) (*transactionModel, error) {
	delta, err := toDecimal128(t.Delta)
	if err != nil {
		return nil, err
	}
	return &transactionModel{
		Principal:   t.Principal,
		ID:          t.ID,
		Delta:       delta,
		Reason:      int(t.Reason),
		Remark:      t.Remark,
		Reference:   t.Reference,
		Correlation: t.Correlation,
		Created:     t.Created.UTC(),
	}, nil
}

func fromTransactionModel(m *transactionModel) (*transaction.Transaction, error) {
	delta, err := fromDecimal128(m.Delta)
	if err != nil {
		return nil, err
	}
	return &transaction.Transaction{
		Principal:   m.Principal,
		ID:          m.ID,
		Delta:       delta,
		Reason:      transaction.Reason(m.Reason),
		Remark:      m.Remark,
		Reference:   m.Reference,
		Correlation: m.Correlation,
		Created:     m.Created.UTC(),
	}, nil
}

// snapshotModel is the BSON document for a day-end snapshot. The document id
// is principal + "|" + day key, which makes snapshot writes natural upserts.
type snapshotModel struct {
	DocID      string          `bson:"_id"`
	SnapshotID string          `bson:"snapshot_id"`
	Principal  string          `bson:"principal"`
	End        time.Time       `bson:"day_end"`
	Balance    bson.Decimal128 `bson:"balance"`
	Credits    bson.Decimal128 `bson:"credits"`
	Debits     bson.Decimal128 `bson:"debits"`
	Created    time.Time       `bson:"created"`
}

func snapshotDocID(principal string, end time.Time) string {
	return principal + "|" + types.DayKey(end)
}

func toSnapshotModel(snap *accounting.Accounting) (*snapshotModel, error) {
	bal, err := toDecimal128(snap.Balance)
	if err != nil {
		return nil, err
	}
	credits, err := toDecimal128(snap.Credits)
	if err != nil {
		return nil, err
	}
	debits, err := toDecimal128(snap.Debits)
	if err != nil {
		return nil, err
	}
	return &snapshotModel{
		DocID:      snapshotDocID(snap.Principal, snap.End),
		SnapshotID: snap.ID.String(),
		Principal:  snap.Principal,
		End:        snap.End.UTC(),
		Balance:    bal,
		Credits:    credits,
		Debits:     debits,
		Created:    snap.Created.UTC(),
	}, nil
}

func fromSnapshotModel(m *snapshotModel) (*accounting.Accounting, error) {
	snapID, err := id.ParseSnapshotID(m.SnapshotID)
	if err != nil {
		return nil, err
	}
	bal, err := fromDecimal128(m.Balance)
	if err != nil {
		return nil, err
	}
	credits, err := fromDecimal128(m.Credits)
	if err != nil {
		return nil, err
	}
	debits, err := fromDecimal128(m.Debits)
	if err != nil {
		return nil, err
	}
	return &accounting.Accounting{
		ID:        snapID,
		Principal: m.Principal,
		End:       m.End.UTC(),
		Balance:   bal,
		Credits:   credits,
		Debits:    debits,
		Created:   m.Created.UTC(),
	}, nil
}

// amountModel holds a single Decimal128 value for delta and frozen documents.
type amountModel struct {
	DocID  string          `bson:"_id"`
	Amount bson.Decimal128 `bson:"amount"`
}

func toDecimal128(d decimal.Decimal) (bson.Decimal128, error) {
	d128, err := bson.ParseDecimal128(d.String())
	if err != nil {
		return bson.Decimal128{}, fmt.Errorf("balance/mongo: encode decimal %q: %w", d.String(), err)
	}
	return d128, nil
}

func fromDecimal128(d bson.Decimal128) (decimal.Decimal, error) {
	out, err := decimal.NewFromString(d.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance/mongo: decode decimal %q: %w", d.String(), err)
	}
	return out, nil
}

// migrationIndexes returns the index definitions for all balance collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colTransactions: {
			{
				Keys:    bson.D{{Key: "principal", Value: 1}, {Key: "id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colSnapshots: {
			{
				Keys: bson.D{{Key: "principal", Value: 1}, {Key: "day_end", Value: -1}},
			},
		},
	}
}
