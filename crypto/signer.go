/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package crypto

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Signer signs 32 byte digests with a secp256k1 private key.
type Signer ecdsa.PrivateKey

// NewSigner wraps an existing private key.
func NewSigner(key *ecdsa.PrivateKey) *Signer {
	return (*Signer)(key)
}

// GenerateSigner creates a signer over a fresh key.
func GenerateSigner() (*Signer, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, errors.Wrap(err, "generate key")
	}
	return (*Signer)(key), nil
}

// LoadSigner reads a hex encoded private key from path.
func LoadSigner(path string) (*Signer, error) {
	key, err := ethcrypto.LoadECDSA(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load key from %s", path)
	}
	return (*Signer)(key), nil
}

// Save writes the hex encoded private key to path.
func (s *Signer) Save(path string) error {
	return ethcrypto.SaveECDSA(path, (*ecdsa.PrivateKey)(s))
}

// Address returns the address controlled by this key.
func (s *Signer) Address() common.Address {
	return ethcrypto.PubkeyToAddress(s.PublicKey)
}

// Sign produces a 65 byte [R || S || V] signature over digest, with V in
// {0,1} as RecoverSigner accepts.
func (s *Signer) Sign(digest common.Hash) ([]byte, error) {
	sig, err := ethcrypto.Sign(digest.Bytes(), (*ecdsa.PrivateKey)(s))
	if err != nil {
		return nil, errors.Wrap(err, "sign digest")
	}
	return sig, nil
}
