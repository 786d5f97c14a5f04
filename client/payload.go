/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package client is the off-chain companion of the distributor: it builds
// batch payloads, reproduces the engine's typed data digest so submitter and
// executor sign identical bytes, collects the submitter signature and talks
// to a distributor node. It also defines the wire payloads the node accepts.
package client

import (
	"math/big"
	"time"

	"github.com/akshayp9/batch-distributor-dual-sig/common/types"
	"github.com/akshayp9/batch-distributor-dual-sig/core"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// BatchPayload is the dual-signature token batch as it travels from the
// submitter to the executor and on to the node.
type BatchPayload struct {
	BatchID      types.BatchID    `json:"batchId"`
	Token        common.Address   `json:"token"`
	Recipients   []common.Address `json:"recipients"`
	Amounts      []*hexutil.Big   `json:"amounts"`
	Deadline     uint64           `json:"deadline"`
	Submitter    common.Address   `json:"submitter"`
	SubmitterSig hexutil.Bytes    `json:"submitterSig,omitempty"`
}

// NativeBatchPayload is the single-signature native coin batch.
type NativeBatchPayload struct {
	BatchID    types.BatchID    `json:"batchId"`
	Recipients []common.Address `json:"recipients"`
	Amounts    []*hexutil.Big   `json:"amounts"`
	Value      *hexutil.Big     `json:"value"`
}

// ExecutionRecord is the node's response to a successful execution and the
// stored record returned by batch queries.
type ExecutionRecord struct {
	BatchID        types.BatchID  `json:"batchId"`
	Token          common.Address `json:"token"`
	Submitter      common.Address `json:"submitter"`
	Executor       common.Address `json:"executor"`
	RecipientCount int            `json:"recipientCount"`
	TotalAmount    *hexutil.Big   `json:"totalAmount"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Batch converts the payload to the engine's batch form.
func (p *BatchPayload) Batch() core.Batch {
	return core.Batch{
		ID:         p.BatchID,
		Token:      p.Token,
		Recipients: p.Recipients,
		Amounts:    bigAmounts(p.Amounts),
		Deadline:   p.Deadline,
	}
}

// Batch converts the payload to the engine's batch form.
func (p *NativeBatchPayload) Batch() core.Batch {
	return core.Batch{
		ID:         p.BatchID,
		Token:      types.NativeToken,
		Recipients: p.Recipients,
		Amounts:    bigAmounts(p.Amounts),
	}
}

// RecordFromEvent converts a distribution event to its wire form.
func RecordFromEvent(e types.DistributionEvent) ExecutionRecord {
	return ExecutionRecord{
		BatchID:        e.BatchID,
		Token:          e.Token,
		Submitter:      e.Submitter,
		Executor:       e.Executor,
		RecipientCount: e.RecipientCount,
		TotalAmount:    (*hexutil.Big)(e.TotalAmount),
		Timestamp:      e.Timestamp,
	}
}

func bigAmounts(amounts []*hexutil.Big) []*big.Int {
	out := make([]*big.Int, len(amounts))
	for i, a := range amounts {
		out[i] = (*big.Int)(a)
	}
	return out
}

func hexAmounts(amounts []*big.Int) []*hexutil.Big {
	out := make([]*hexutil.Big, len(amounts))
	for i, a := range amounts {
		out[i] = (*hexutil.Big)(a)
	}
	return out
}
