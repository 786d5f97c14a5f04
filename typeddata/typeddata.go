/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package typeddata builds the EIP-712 typed data digest a submitter signs
// over a distribution batch. The executor side rebuilds the digest from the
// received payload with the same code, so both parties always sign and verify
// identical bytes.
package typeddata

import (
	"math/big"

	"github.com/akshayp9/batch-distributor-dual-sig/common/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

const (
	DomainName    = "BatchDistributorV2"
	DomainVersion = "1"
)

var (
	domainTypeHash = crypto.Keccak256Hash(
		[]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	batchTokenTypeHash = crypto.Keccak256Hash(
		[]byte("BatchToken(bytes32 batchId,address token,bytes32 recipientsHash,bytes32 amountsHash,uint256 totalAmount,uint256 deadline)"))
)

// Domain distinguishes one deployment's signatures from every other
// deployment, protocol and chain.
type Domain struct {
	ChainID           *big.Int
	VerifyingContract common.Address
}

// Separator returns the EIP-712 domain separator of d.
func (d Domain) Separator() (common.Hash, error) {
	chainID, err := u256(d.ChainID)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "chain id")
	}
	return crypto.Keccak256Hash(
		domainTypeHash.Bytes(),
		crypto.Keccak256([]byte(DomainName)),
		crypto.Keccak256([]byte(DomainVersion)),
		chainID,
		common.LeftPadBytes(d.VerifyingContract.Bytes(), 32),
	), nil
}

// HashRecipients hashes the ordered recipient sequence as the packed
// concatenation of 20 byte addresses.
func HashRecipients(recipients []common.Address) common.Hash {
	packed := make([]byte, 0, len(recipients)*common.AddressLength)
	for _, r := range recipients {
		packed = append(packed, r.Bytes()...)
	}
	return crypto.Keccak256Hash(packed)
}

// HashAmounts hashes the ordered amount sequence as the packed concatenation
// of 32 byte big endian words.
func HashAmounts(amounts []*big.Int) (common.Hash, error) {
	packed := make([]byte, 0, len(amounts)*common.HashLength)
	for i, a := range amounts {
		word, err := u256(a)
		if err != nil {
			return common.Hash{}, errors.Wrapf(err, "amount at index %d", i)
		}
		packed = append(packed, word...)
	}
	return crypto.Keccak256Hash(packed), nil
}

// SumAmounts returns the total of amounts, failing if the sum exceeds the
// 256 bit word the signed struct carries it in.
func SumAmounts(amounts []*big.Int) (*big.Int, error) {
	total := new(big.Int)
	for i, a := range amounts {
		if _, err := u256(a); err != nil {
			return nil, errors.Wrapf(err, "amount at index %d", i)
		}
		total.Add(total, a)
	}
	if total.BitLen() > 256 {
		return nil, errors.New("total amount overflows uint256")
	}
	return total, nil
}

// StructHash computes the hash of the BatchToken struct. The recipient and
// amount arrays are hashed, not embedded, so the signed payload stays fixed
// size regardless of batch size.
func StructHash(batchID types.BatchID, token common.Address, recipients []common.Address, amounts []*big.Int, deadline uint64) (common.Hash, error) {
	amountsHash, err := HashAmounts(amounts)
	if err != nil {
		return common.Hash{}, err
	}
	total, err := SumAmounts(amounts)
	if err != nil {
		return common.Hash{}, err
	}
	totalWord, err := u256(total)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(
		batchTokenTypeHash.Bytes(),
		batchID.Bytes(),
		common.LeftPadBytes(token.Bytes(), 32),
		HashRecipients(recipients).Bytes(),
		amountsHash.Bytes(),
		totalWord,
		common.LeftPadBytes(new(big.Int).SetUint64(deadline).Bytes(), 32),
	), nil
}

// Digest computes the final digest both parties sign: the struct hash bound
// to the signing domain per EIP-191/EIP-712 (0x19 0x01 prefix).
func Digest(domain Domain, batchID types.BatchID, token common.Address, recipients []common.Address, amounts []*big.Int, deadline uint64) (common.Hash, error) {
	separator, err := domain.Separator()
	if err != nil {
		return common.Hash{}, err
	}
	structHash, err := StructHash(batchID, token, recipients, amounts, deadline)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(
		[]byte{0x19, 0x01},
		separator.Bytes(),
		structHash.Bytes(),
	), nil
}

// u256 encodes a non-negative big integer as a 32 byte big endian word.
func u256(v *big.Int) ([]byte, error) {
	if v == nil {
		return nil, errors.New("nil value")
	}
	if v.Sign() < 0 {
		return nil, errors.Errorf("negative value %s", v)
	}
	if v.BitLen() > 256 {
		return nil, errors.Errorf("value %s overflows uint256", v)
	}
	return common.LeftPadBytes(v.Bytes(), 32), nil
}
