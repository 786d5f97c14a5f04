/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package crypto_test

import (
	"path/filepath"
	"testing"

	"github.com/akshayp9/batch-distributor-dual-sig/crypto"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndRecover(t *testing.T) {
	signer, err := crypto.GenerateSigner()
	require.NoError(t, err)

	digest := ethcrypto.Keccak256Hash([]byte("a batch digest"))
	sig, err := signer.Sign(digest)
	require.NoError(t, err)
	require.Len(t, sig, crypto.SignatureLength)

	recovered, err := crypto.RecoverSigner(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), recovered)
}

func TestRecoverAcceptsWalletV(t *testing.T) {
	signer, err := crypto.GenerateSigner()
	require.NoError(t, err)

	digest := ethcrypto.Keccak256Hash([]byte("a batch digest"))
	sig, err := signer.Sign(digest)
	require.NoError(t, err)

	// Wallets report V as 27/28 rather than 0/1.
	sig[64] += 27
	recovered, err := crypto.RecoverSigner(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), recovered)
}

func TestRecoverWrongDigestYieldsDifferentSigner(t *testing.T) {
	signer, err := crypto.GenerateSigner()
	require.NoError(t, err)

	digest := ethcrypto.Keccak256Hash([]byte("signed digest"))
	sig, err := signer.Sign(digest)
	require.NoError(t, err)

	other := ethcrypto.Keccak256Hash([]byte("tampered digest"))
	recovered, err := crypto.RecoverSigner(other, sig)
	if err == nil {
		assert.NotEqual(t, signer.Address(), recovered)
	}
}

func TestRecoverMalformedSignature(t *testing.T) {
	digest := ethcrypto.Keccak256Hash([]byte("a batch digest"))

	t.Run("wrong length", func(t *testing.T) {
		_, err := crypto.RecoverSigner(digest, []byte{0x01, 0x02})
		require.Error(t, err)
		assert.ErrorIs(t, err, crypto.ErrInvalidSignature)
	})

	t.Run("recovery id out of range", func(t *testing.T) {
		sig := make([]byte, crypto.SignatureLength)
		sig[64] = 9
		_, err := crypto.RecoverSigner(digest, sig)
		require.Error(t, err)
		assert.ErrorIs(t, err, crypto.ErrInvalidSignature)
	})

	t.Run("garbage body", func(t *testing.T) {
		sig := make([]byte, crypto.SignatureLength)
		_, err := crypto.RecoverSigner(digest, sig)
		assert.Error(t, err)
	})
}

func TestSignerSaveLoad(t *testing.T) {
	signer, err := crypto.GenerateSigner()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "key.hex")
	require.NoError(t, signer.Save(path))

	loaded, err := crypto.LoadSigner(path)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), loaded.Address())

	var zero common.Address
	assert.NotEqual(t, zero, loaded.Address())
}
