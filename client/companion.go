/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package client

import (
	"math/big"

	"github.com/akshayp9/batch-distributor-dual-sig/common/types"
	"github.com/akshayp9/batch-distributor-dual-sig/crypto"
	"github.com/akshayp9/batch-distributor-dual-sig/typeddata"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Companion performs the submitter's side of the protocol. Digest
// construction goes through the same typeddata package the engine verifies
// with; any divergence between the two sides is a defect, not a variance.
type Companion struct {
	domain typeddata.Domain
	signer *crypto.Signer
}

func NewCompanion(domain typeddata.Domain) *Companion {
	return &Companion{domain: domain}
}

// WithSigner attaches the submitter key used by Sign.
func (c *Companion) WithSigner(s *crypto.Signer) *Companion {
	c.signer = s
	return c
}

// Domain returns the signing domain the companion binds digests to.
func (c *Companion) Domain() typeddata.Domain {
	return c.domain
}

// NewPayload assembles and pre-validates a batch payload. The checks mirror
// the engine's shape preconditions so a submitter learns about a bad batch
// before anything is signed or sent.
func (c *Companion) NewPayload(
	batchID types.BatchID,
	token common.Address,
	recipients []common.Address,
	amounts []*big.Int,
	deadline uint64,
) (*BatchPayload, error) {
	if batchID.IsZero() {
		return nil, errors.New("batch id must be non-zero")
	}
	if len(recipients) == 0 {
		return nil, errors.New("batch has no recipients")
	}
	if len(recipients) != len(amounts) {
		return nil, errors.Errorf("%d recipients but %d amounts", len(recipients), len(amounts))
	}
	for i, r := range recipients {
		if r == (common.Address{}) {
			return nil, errors.Errorf("zero recipient at index %d", i)
		}
		if amounts[i] == nil || amounts[i].Sign() == 0 {
			return nil, errors.Errorf("zero amount at index %d", i)
		}
	}
	if _, err := typeddata.SumAmounts(amounts); err != nil {
		return nil, err
	}
	return &BatchPayload{
		BatchID:    batchID,
		Token:      token,
		Recipients: recipients,
		Amounts:    hexAmounts(amounts),
		Deadline:   deadline,
	}, nil
}

// Digest computes the typed data digest of the payload.
func (c *Companion) Digest(p *BatchPayload) (common.Hash, error) {
	return typeddata.Digest(c.domain, p.BatchID, p.Token, p.Recipients, bigAmounts(p.Amounts), p.Deadline)
}

// Sign sets the submitter identity and signature on the payload.
func (c *Companion) Sign(p *BatchPayload) error {
	if c.signer == nil {
		return errors.New("companion has no signer")
	}
	digest, err := c.Digest(p)
	if err != nil {
		return err
	}
	sig, err := c.signer.Sign(digest)
	if err != nil {
		return err
	}
	p.Submitter = c.signer.Address()
	p.SubmitterSig = sig
	return nil
}

// RecoverSubmitter is the executor's pre-flight check: it recovers the
// identity that signed the payload without any side effect.
func (c *Companion) RecoverSubmitter(p *BatchPayload) (common.Address, error) {
	digest, err := c.Digest(p)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.RecoverSigner(digest, p.SubmitterSig)
}
