/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package core

import (
	"math/big"

	"github.com/akshayp9/batch-distributor-dual-sig/common/types"

	"github.com/ethereum/go-ethereum/common"
)

// Batch is the unit of authorization and execution: one id, one asset, one
// ordered recipient/amount pairing, consumed exactly once.
type Batch struct {
	ID         types.BatchID
	Token      common.Address
	Recipients []common.Address
	Amounts    []*big.Int
	Deadline   uint64
}

// BatchLedger tracks executed batch ids. Implemented by ledger.ExecutedBatchDB.
type BatchLedger interface {
	Exists(id types.BatchID) bool
	Mark(id types.BatchID, event types.DistributionEvent) error
	// Unmark is the engine's compensating rollback; it is never called on a
	// committed batch.
	Unmark(id types.BatchID) error
}

// AssetBackend is the externally managed asset ledger the engine orchestrates
// transfers against. The zero address token means the native coin.
type AssetBackend interface {
	BalanceOf(token, holder common.Address) (*big.Int, error)
	Transfer(token, from, to common.Address, amount *big.Int) error
}
