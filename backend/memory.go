/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package backend provides an in-process asset backend. The production
// deployment binds the engine to the externally managed asset ledger; this
// implementation stands in for it in tests and demo runs.
package backend

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

type holding struct {
	token  common.Address
	holder common.Address
}

// Memory is a mutex-guarded balance table implementing core.AssetBackend.
type Memory struct {
	mu       sync.Mutex
	balances map[holding]*big.Int
}

func NewMemory() *Memory {
	return &Memory{balances: make(map[holding]*big.Int)}
}

// Mint credits amount to holder, creating supply out of nothing. Test and
// demo setup only.
func (m *Memory) Mint(token, holder common.Address, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credit(token, holder, amount)
}

func (m *Memory) BalanceOf(token, holder common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.balances[holding{token, holder}]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (m *Memory) Transfer(token, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return errors.Errorf("invalid transfer amount %s", amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	src := m.balances[holding{token, from}]
	if src == nil || src.Cmp(amount) < 0 {
		return errors.Errorf("holder %s has insufficient %s balance", from, token)
	}
	src.Sub(src, amount)
	m.credit(token, to, amount)
	return nil
}

func (m *Memory) credit(token, holder common.Address, amount *big.Int) {
	key := holding{token, holder}
	if b, ok := m.balances[key]; ok {
		b.Add(b, amount)
		return
	}
	m.balances[key] = new(big.Int).Set(amount)
}
