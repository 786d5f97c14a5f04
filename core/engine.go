/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package core implements the execution engine of the dual-signature batch
// distributor: precondition validation, the two-party signature check, the
// replay ledger transition and the atomic multi-recipient disbursement.
package core

import (
	"math/big"
	"sync"
	"time"

	"github.com/akshayp9/batch-distributor-dual-sig/common/types"
	"github.com/akshayp9/batch-distributor-dual-sig/crypto"
	"github.com/akshayp9/batch-distributor-dual-sig/typeddata"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const (
	pathToken  = "token"
	pathNative = "native"
)

// Engine validates and executes distribution batches against an injected
// asset backend. Executions are serialized: two calls for the same batch id
// can never both pass the check-then-mark transition.
type Engine struct {
	domain   typeddata.Domain
	policy   *Policy
	ledger   BatchLedger
	backend  AssetBackend
	treasury common.Address
	sink     types.EventSink
	logger   types.Logger
	metrics  *EngineMetrics
	now      func() time.Time

	mu sync.Mutex
}

func NewEngine(
	domain typeddata.Domain,
	policy *Policy,
	ledger BatchLedger,
	backend AssetBackend,
	treasury common.Address,
	sink types.EventSink,
	logger types.Logger,
) *Engine {
	return &Engine{
		domain:   domain,
		policy:   policy,
		ledger:   ledger,
		backend:  backend,
		treasury: treasury,
		sink:     sink,
		logger:   logger,
		now:      time.Now,
	}
}

// WithMetrics attaches an engine metric set.
func (e *Engine) WithMetrics(m *EngineMetrics) *Engine {
	e.metrics = m
	return e
}

// WithClock overrides the time source; tests use it to exercise deadline
// enforcement.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Policy returns the mutable execution policy, for the administrative
// boundary.
func (e *Engine) Policy() *Policy {
	return e.policy
}

// Domain returns the signing domain this engine verifies against.
func (e *Engine) Domain() typeddata.Domain {
	return e.domain
}

// Digest computes the typed data digest of batch under the engine's signing
// domain. Read-only; usable for off-chain preview.
func (e *Engine) Digest(batch Batch) (common.Hash, error) {
	return typeddata.Digest(e.domain, batch.ID, batch.Token, batch.Recipients, batch.Amounts, batch.Deadline)
}

// ExecuteDualSig executes a token batch authorized by two independent
// identities: the submitter, who signed the batch digest off-chain, and the
// executor, the verified caller submitting the execution. Preconditions are
// checked in a fixed order and the first violation wins. On success every
// recipient has been paid and the batch id is permanently marked executed;
// on any failure no balance and no ledger state changes.
func (e *Engine) ExecuteDualSig(
	executor common.Address,
	batch Batch,
	submitter common.Address,
	submitterSig []byte,
) (types.DistributionEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fail := func(err error) (types.DistributionEvent, error) {
		if e.metrics != nil {
			e.metrics.ExecutionFailures.WithLabelValues(pathToken).Inc()
		}
		return types.DistributionEvent{}, err
	}

	if e.policy.Paused() {
		return fail(ErrPaused)
	}
	if !e.policy.TokenAllowed(batch.Token) {
		return fail(errors.Wrapf(ErrAssetNotWhitelisted, "token %s", batch.Token))
	}
	if err := e.validateShape(batch); err != nil {
		return fail(err)
	}

	digest, err := e.Digest(batch)
	if err != nil {
		return fail(err)
	}
	recovered, err := crypto.RecoverSigner(digest, submitterSig)
	if err != nil {
		return fail(err)
	}
	if recovered != submitter {
		return fail(errors.Wrapf(ErrInvalidSigner, "recovered %s, declared %s", recovered, submitter))
	}
	if executor == submitter {
		return fail(errors.Wrapf(ErrSameSubmitterAndExecutor, "identity %s", executor))
	}

	event, err := e.disburse(pathToken, batch, submitter, executor, e.treasury)
	if err != nil {
		return fail(err)
	}
	return event, nil
}

// ExecuteNative executes a native coin batch. It is single-signature: the
// verified caller both authorizes and funds it, and the attached value must
// equal the batch total exactly.
func (e *Engine) ExecuteNative(
	executor common.Address,
	batch Batch,
	value *big.Int,
) (types.DistributionEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fail := func(err error) (types.DistributionEvent, error) {
		if e.metrics != nil {
			e.metrics.ExecutionFailures.WithLabelValues(pathNative).Inc()
		}
		return types.DistributionEvent{}, err
	}

	if e.policy.Paused() {
		return fail(ErrPaused)
	}
	batch.Token = types.NativeToken
	if err := e.validateShape(batch); err != nil {
		return fail(err)
	}

	total, err := typeddata.SumAmounts(batch.Amounts)
	if err != nil {
		return fail(err)
	}
	if value == nil || value.Cmp(total) != 0 {
		return fail(errors.Wrapf(ErrValueMismatch, "attached %s, total %s", value, total))
	}

	// Push-based: the caller's own balance funds the batch.
	event, err := e.disburse(pathNative, batch, executor, executor, executor)
	if err != nil {
		return fail(err)
	}
	return event, nil
}

// validateShape runs the shape and replay preconditions shared by both
// execution paths, in the documented order.
func (e *Engine) validateShape(batch Batch) error {
	if batch.ID.IsZero() {
		return ErrZeroBatchID
	}
	if e.ledger.Exists(batch.ID) {
		return errors.Wrapf(ErrBatchAlreadyExecuted, "batch %s", batch.ID)
	}
	if len(batch.Recipients) == 0 {
		return ErrEmptyBatch
	}
	if len(batch.Recipients) != len(batch.Amounts) {
		return errors.Wrapf(ErrInvalidArrayLengths, "%d recipients, %d amounts", len(batch.Recipients), len(batch.Amounts))
	}
	if max := e.policy.MaxBatchSize(); len(batch.Recipients) > max {
		return errors.Wrapf(ErrBatchTooLarge, "%d recipients, maximum %d", len(batch.Recipients), max)
	}
	if e.policy.EnforceDeadline() && batch.Deadline > 0 {
		if now := uint64(e.now().Unix()); now > batch.Deadline {
			return errors.Wrapf(ErrBatchExpired, "deadline %d, now %d", batch.Deadline, now)
		}
	}
	return nil
}

// disburse performs the staged commit: mark the ledger, check the funding
// balance, transfer to every recipient in order. A failure at any point
// reverses the transfers applied so far and unmarks the ledger entry, so a
// mid-batch failure leaves no partial payout.
func (e *Engine) disburse(
	path string,
	batch Batch,
	submitter, executor, source common.Address,
) (types.DistributionEvent, error) {
	total, err := typeddata.SumAmounts(batch.Amounts)
	if err != nil {
		return types.DistributionEvent{}, err
	}

	event := types.DistributionEvent{
		BatchID:        batch.ID,
		Token:          batch.Token,
		Submitter:      submitter,
		Executor:       executor,
		RecipientCount: len(batch.Recipients),
		TotalAmount:    total,
		Timestamp:      e.now().UTC(),
	}

	// Marking before the transfers guards against reentrant replay through
	// the backend; the rollback below compensates if anything later fails.
	if err := e.ledger.Mark(batch.ID, event); err != nil {
		return types.DistributionEvent{}, err
	}

	balance, err := e.backend.BalanceOf(batch.Token, source)
	if err == nil && balance.Cmp(total) < 0 {
		err = errors.Wrapf(ErrInsufficientBalance, "balance %s, total %s", balance, total)
	}
	if err != nil {
		e.rollback(batch, source, nil)
		return types.DistributionEvent{}, err
	}

	applied := 0
	transfers := make([]types.TransferEvent, 0, len(batch.Recipients))
	for i, recipient := range batch.Recipients {
		amount := batch.Amounts[i]
		if recipient == (common.Address{}) {
			e.rollback(batch, source, batch.Recipients[:applied])
			return types.DistributionEvent{}, errors.Wrapf(ErrZeroRecipient, "index %d", i)
		}
		if amount == nil || amount.Sign() == 0 {
			e.rollback(batch, source, batch.Recipients[:applied])
			return types.DistributionEvent{}, errors.Wrapf(ErrZeroAmount, "index %d", i)
		}
		if err := e.backend.Transfer(batch.Token, source, recipient, amount); err != nil {
			e.rollback(batch, source, batch.Recipients[:applied])
			return types.DistributionEvent{}, errors.Wrapf(err, "transfer to %s at index %d", recipient, i)
		}
		applied++
		transfers = append(transfers, types.TransferEvent{
			BatchID:   batch.ID,
			Token:     batch.Token,
			Recipient: recipient,
			Amount:    amount,
		})
	}

	for _, t := range transfers {
		e.sink.TransferExecuted(t)
	}
	e.sink.BatchDistributed(event)

	if e.metrics != nil {
		e.metrics.BatchesExecuted.WithLabelValues(path).Inc()
		e.metrics.TransfersExecuted.Add(float64(len(transfers)))
		e.metrics.BatchSize.Observe(float64(len(transfers)))
	}
	e.logger.Infof("Executed batch %s: %d transfers, total %s, submitter %s, executor %s",
		batch.ID, len(transfers), total, submitter, executor)
	return event, nil
}

// rollback reverses the transfers applied so far and unmarks the ledger
// entry. A failure here means the backend accepted a transfer it cannot
// reverse; the engine cannot continue with a half-paid batch on the books.
func (e *Engine) rollback(batch Batch, source common.Address, paid []common.Address) {
	for i := len(paid) - 1; i >= 0; i-- {
		if err := e.backend.Transfer(batch.Token, paid[i], source, batch.Amounts[i]); err != nil {
			e.logger.Panicf("Failed compensating transfer from %s for batch %s: %v", paid[i], batch.ID, err)
		}
	}
	if err := e.ledger.Unmark(batch.ID); err != nil {
		e.logger.Panicf("Failed unmarking batch %s after rollback: %v", batch.ID, err)
	}
}
