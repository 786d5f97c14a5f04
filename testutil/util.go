/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package testutil

import (
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/akshayp9/batch-distributor-dual-sig/common/types"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

// GenerateKey creates a fresh secp256k1 key pair and returns it together
// with the address it controls.
func GenerateKey(t *testing.T) (*ecdsa.PrivateKey, common.Address) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	return key, ethcrypto.PubkeyToAddress(key.PublicKey)
}

// BatchIDWithSuffix returns a batch id whose last byte is b. Handy for
// producing distinct, recognizable ids in tests.
func BatchIDWithSuffix(b byte) types.BatchID {
	var id types.BatchID
	id[31] = b
	return id
}

// Recipients returns n distinct non-zero addresses.
func Recipients(n int) []common.Address {
	out := make([]common.Address, n)
	for i := 0; i < n; i++ {
		out[i] = common.BigToAddress(big.NewInt(int64(i + 1)))
	}
	return out
}

// Amounts returns n amounts valued base, base+1, ...
func Amounts(n int, base int64) []*big.Int {
	out := make([]*big.Int, n)
	for i := 0; i < n; i++ {
		out[i] = big.NewInt(base + int64(i))
	}
	return out
}

// Sum adds up a slice of amounts.
func Sum(amounts []*big.Int) *big.Int {
	total := new(big.Int)
	for _, a := range amounts {
		total.Add(total, a)
	}
	return total
}
