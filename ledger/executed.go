/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package ledger persists which batch ids have been executed. Entries are
// never evicted: the executed flag is the replay protection of the whole
// system and must outlive any individual process.
package ledger

import (
	"encoding/asn1"
	"math/big"
	"time"

	"github.com/akshayp9/batch-distributor-dual-sig/common/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const executedKeyPrefix = byte(0)

// ExecutedBatchDB maps batch ids to their execution records.
type ExecutedBatchDB struct {
	db      *leveldb.DB
	logger  types.Logger
	metrics *ExecutedLedgerMetrics
}

func NewExecutedBatchDB(path string, logger types.Logger) (*ExecutedBatchDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "open executed batch db at %s", path)
	}
	return &ExecutedBatchDB{db: db, logger: logger}, nil
}

// WithMetrics attaches a metric set; safe to skip in tests.
func (e *ExecutedBatchDB) WithMetrics(m *ExecutedLedgerMetrics) *ExecutedBatchDB {
	e.metrics = m
	return e
}

func (e *ExecutedBatchDB) Close() {
	e.db.Close()
}

// Exists reports whether the batch id was already executed.
func (e *ExecutedBatchDB) Exists(id types.BatchID) bool {
	_, err := e.db.Get(makeExecutedKey(id), nil)
	return err == nil
}

// Mark transitions the batch id to executed and stores its execution record.
// The transition is one way; Unmark exists solely for the engine's
// compensating rollback path and must never be reachable otherwise.
func (e *ExecutedBatchDB) Mark(id types.BatchID, event types.DistributionEvent) error {
	raw, err := asn1.Marshal(recordFromEvent(event))
	if err != nil {
		return errors.Wrap(err, "marshal execution record")
	}
	if err := e.db.Put(makeExecutedKey(id), raw, nil); err != nil {
		return errors.Wrapf(err, "mark batch %s executed", id)
	}
	if e.metrics != nil {
		e.metrics.BatchesMarked.Inc()
	}
	return nil
}

// Unmark removes the executed flag. Rollback use only.
func (e *ExecutedBatchDB) Unmark(id types.BatchID) error {
	if err := e.db.Delete(makeExecutedKey(id), nil); err != nil {
		return errors.Wrapf(err, "unmark batch %s", id)
	}
	if e.metrics != nil {
		e.metrics.Rollbacks.Inc()
	}
	return nil
}

// Record returns the execution record for the batch id, if it was executed.
func (e *ExecutedBatchDB) Record(id types.BatchID) (types.DistributionEvent, bool, error) {
	raw, err := e.db.Get(makeExecutedKey(id), nil)
	if err == leveldb.ErrNotFound {
		return types.DistributionEvent{}, false, nil
	}
	if err != nil {
		return types.DistributionEvent{}, false, errors.Wrapf(err, "read record of batch %s", id)
	}
	var rec record
	if _, err := asn1.Unmarshal(raw, &rec); err != nil {
		return types.DistributionEvent{}, false, errors.Wrapf(err, "unmarshal record of batch %s", id)
	}
	return rec.event(id), true, nil
}

// List returns all executed batch ids.
func (e *ExecutedBatchDB) List() []types.BatchID {
	iter := e.db.NewIterator(util.BytesPrefix([]byte{executedKeyPrefix}), nil)
	defer iter.Release()

	var ids []types.BatchID
	for iter.Next() {
		key := iter.Key()
		var id types.BatchID
		copy(id[:], key[1:])
		ids = append(ids, id)
	}
	return ids
}

func makeExecutedKey(id types.BatchID) []byte {
	buff := make([]byte, len(id)+1)
	buff[0] = executedKeyPrefix
	copy(buff[1:], id[:])
	return buff
}

// record is the asn1 wire form of the stored execution record.
type record struct {
	Token          []byte
	Submitter      []byte
	Executor       []byte
	RecipientCount int
	TotalAmount    []byte
	TimestampUnix  int64
}

func recordFromEvent(e types.DistributionEvent) record {
	total := e.TotalAmount
	if total == nil {
		total = new(big.Int)
	}
	return record{
		Token:          e.Token.Bytes(),
		Submitter:      e.Submitter.Bytes(),
		Executor:       e.Executor.Bytes(),
		RecipientCount: e.RecipientCount,
		TotalAmount:    total.Bytes(),
		TimestampUnix:  e.Timestamp.Unix(),
	}
}

func (r record) event(id types.BatchID) types.DistributionEvent {
	return types.DistributionEvent{
		BatchID:        id,
		Token:          common.BytesToAddress(r.Token),
		Submitter:      common.BytesToAddress(r.Submitter),
		Executor:       common.BytesToAddress(r.Executor),
		RecipientCount: r.RecipientCount,
		TotalAmount:    new(big.Int).SetBytes(r.TotalAmount),
		Timestamp:      time.Unix(r.TimestampUnix, 0).UTC(),
	}
}
