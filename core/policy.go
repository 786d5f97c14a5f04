/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package core

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Policy holds the mutable execution policy the administrative surface
// controls: the token allow-list, the batch size cap, the pause switch and
// whether the signed deadline is enforced at execution time.
type Policy struct {
	mu              sync.RWMutex
	maxBatchSize    int
	whitelist       map[common.Address]struct{}
	enforceDeadline bool
	paused          bool
}

func NewPolicy(maxBatchSize int, enforceDeadline bool) *Policy {
	return &Policy{
		maxBatchSize:    maxBatchSize,
		whitelist:       make(map[common.Address]struct{}),
		enforceDeadline: enforceDeadline,
	}
}

func (p *Policy) MaxBatchSize() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.maxBatchSize
}

func (p *Policy) SetMaxBatchSize(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxBatchSize = n
}

func (p *Policy) AllowToken(token common.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.whitelist[token] = struct{}{}
}

func (p *Policy) RevokeToken(token common.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.whitelist, token)
}

func (p *Policy) TokenAllowed(token common.Address) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.whitelist[token]
	return ok
}

func (p *Policy) Whitelist() []common.Address {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]common.Address, 0, len(p.whitelist))
	for token := range p.whitelist {
		out = append(out, token)
	}
	return out
}

func (p *Policy) EnforceDeadline() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.enforceDeadline
}

func (p *Policy) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
}

func (p *Policy) Unpause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
}

func (p *Policy) Paused() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused
}
