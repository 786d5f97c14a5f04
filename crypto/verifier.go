/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package crypto

import (
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// SignatureLength is the expected [R || S || V] signature size in bytes.
const SignatureLength = 65

// ErrInvalidSignature means the signature is malformed or does not recover
// to any identity.
var ErrInvalidSignature = errors.New("invalid signature")

// RecoverSigner recovers the address that signed digest. The V byte is
// accepted both raw ({0,1}) and in the conventional wallet form ({27,28}).
// It is a pure function: callers may use it for off-chain preview as well as
// for gating execution.
func RecoverSigner(digest common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, errors.Wrapf(ErrInvalidSignature, "signature must be %d bytes, got %d", SignatureLength, len(sig))
	}

	norm := make([]byte, SignatureLength)
	copy(norm, sig)
	if norm[64] >= 27 {
		norm[64] -= 27
	}
	if norm[64] > 1 {
		return common.Address{}, errors.Wrapf(ErrInvalidSignature, "recovery id %d out of range", sig[64])
	}

	pub, err := ethcrypto.SigToPub(digest.Bytes(), norm)
	if err != nil {
		return common.Address{}, errors.Wrapf(ErrInvalidSignature, "recover public key: %v", err)
	}

	signer := ethcrypto.PubkeyToAddress(*pub)
	if signer == (common.Address{}) {
		return common.Address{}, errors.Wrap(ErrInvalidSignature, "recovered the zero address")
	}
	return signer, nil
}
