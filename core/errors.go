/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package core

import "github.com/pkg/errors"

// Every failure of the execution path is one of the named reasons below (or
// crypto.ErrInvalidSignature from signature recovery). Nothing is retried
// internally; all of them are surfaced to the caller before any state change,
// except resource errors which trigger a full rollback first.
var (
	ErrAssetNotWhitelisted      = errors.New("asset not whitelisted")
	ErrZeroBatchID              = errors.New("batch id must be non-zero")
	ErrBatchAlreadyExecuted     = errors.New("batch already executed")
	ErrEmptyBatch               = errors.New("empty batch")
	ErrInvalidArrayLengths      = errors.New("recipients and amounts lengths differ")
	ErrBatchTooLarge            = errors.New("batch exceeds the maximum size")
	ErrBatchExpired             = errors.New("batch deadline has passed")
	ErrInvalidSigner            = errors.New("recovered signer does not match the declared submitter")
	ErrSameSubmitterAndExecutor = errors.New("submitter and executor must be distinct identities")
	ErrInsufficientBalance      = errors.New("treasury balance below batch total")
	ErrZeroRecipient            = errors.New("recipient must be non-zero")
	ErrZeroAmount               = errors.New("amount must be non-zero")
	ErrValueMismatch            = errors.New("attached value does not equal the batch total")
	ErrPaused                   = errors.New("distributor is paused")
)
