/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// BatchID is the caller-chosen 256-bit identifier of a distribution batch.
// It is the replay protection key: once a batch id is executed it can never
// be executed again, regardless of the rest of the payload.
type BatchID [32]byte

// NativeToken is the sentinel token address meaning the chain's native coin.
var NativeToken = common.Address{}

func (id BatchID) IsZero() bool {
	return id == BatchID{}
}

func (id BatchID) Hash() common.Hash {
	return common.Hash(id)
}

func (id BatchID) Bytes() []byte {
	h := common.Hash(id)
	return h.Bytes()
}

func (id BatchID) String() string {
	return common.Hash(id).Hex()
}

// BatchIDFromHex parses a 0x-prefixed 32-byte hex string.
func BatchIDFromHex(s string) (BatchID, error) {
	raw := common.FromHex(s)
	if len(raw) != 32 {
		return BatchID{}, errors.Errorf("batch id %q is not a 32 byte hex string", s)
	}
	return BatchID(common.BytesToHash(raw)), nil
}

func (id BatchID) MarshalText() ([]byte, error) {
	return common.Hash(id).MarshalText()
}

func (id *BatchID) UnmarshalText(text []byte) error {
	var h common.Hash
	if err := h.UnmarshalText(text); err != nil {
		return err
	}
	*id = BatchID(h)
	return nil
}

// TransferEvent is the per-recipient audit record emitted for every
// successful transfer inside a batch.
type TransferEvent struct {
	BatchID   BatchID
	Token     common.Address
	Recipient common.Address
	Amount    *big.Int
}

// DistributionEvent is the aggregate audit record emitted once per executed
// batch, after all transfers completed.
type DistributionEvent struct {
	BatchID        BatchID
	Token          common.Address
	Submitter      common.Address
	Executor       common.Address
	RecipientCount int
	TotalAmount    *big.Int
	Timestamp      time.Time
}

// EventSink receives audit events from the execution engine.
type EventSink interface {
	TransferExecuted(TransferEvent)
	BatchDistributed(DistributionEvent)
}

type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Panicf(template string, args ...interface{})
}
