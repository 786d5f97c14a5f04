/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// NodeLocalConfig controls the configuration of a distributor node.
// Every time a node starts, it is expected to load this file.
type NodeLocalConfig struct {
	// GeneralConfig configures the listen address and logging of the node.
	GeneralConfig *GeneralConfig `yaml:"General,omitempty"`
	// DistributorParams controls the signing domain and execution policy.
	DistributorParams *DistributorParams `yaml:"Distributor,omitempty"`
	// FileStore controls where the executed-batch ledger is stored.
	FileStore *FileStore `yaml:"FileStore,omitempty"`
	// Monitoring controls the prometheus endpoint.
	Monitoring *Monitoring `yaml:"Monitoring,omitempty"`
}

type GeneralConfig struct {
	// ListenAddress is the IP on which to bind to listen.
	ListenAddress string `yaml:"ListenAddress,omitempty"`
	// ListenPort is the port on which to bind to listen.
	ListenPort int `yaml:"ListenPort,omitempty"`
	// LogSpec controls the logging level of the node.
	LogSpec string `yaml:"LogSpec,omitempty"`
}

type DistributorParams struct {
	// ChainID is the network identifier bound into every signed digest.
	ChainID uint64 `yaml:"ChainID,omitempty"`
	// VerifyingContract is the deployment identity bound into every signed digest.
	VerifyingContract string `yaml:"VerifyingContract,omitempty"`
	// Treasury is the identity whose balance funds token batches.
	Treasury string `yaml:"Treasury,omitempty"`
	// MaxBatchSize caps the recipient count of a single batch.
	MaxBatchSize int `yaml:"MaxBatchSize,omitempty"`
	// EnforceDeadline makes the engine reject batches past their signed deadline.
	// Off by default: the deadline is then a client-side staleness hint only.
	EnforceDeadline bool `yaml:"EnforceDeadline,omitempty"`
	// TokenWhitelist is the initial asset allow-list.
	TokenWhitelist []string `yaml:"TokenWhitelist,omitempty"`
	// Verifiers are the identities holding the verifier/executor capability.
	Verifiers []string `yaml:"Verifiers,omitempty"`
	// Admins are the identities holding the admin capability.
	Admins []string `yaml:"Admins,omitempty"`
	// StartPaused starts the node with execution blocked.
	StartPaused bool `yaml:"StartPaused,omitempty"`
	// InitialBalances seeds the in-process demo backend at startup.
	InitialBalances []Balance `yaml:"InitialBalances,omitempty"`
}

// Balance seeds one holding of the demo backend. Amount is a decimal string
// so it can exceed 64 bits.
type Balance struct {
	Token  string `yaml:"Token,omitempty"`
	Holder string `yaml:"Holder,omitempty"`
	Amount string `yaml:"Amount,omitempty"`
}

type FileStore struct {
	// Path is the directory holding the executed-batch database.
	Path string `yaml:"Path,omitempty"`
}

type Monitoring struct {
	// ListenAddress is the prometheus bind address, host:port. Empty disables it.
	ListenAddress string `yaml:"ListenAddress,omitempty"`
}

// Load reads and validates a node config from a YAML file.
func Load(path string) (*NodeLocalConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config file %s", path)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(raw, config); err != nil {
		return nil, errors.Wrapf(err, "parse config file %s", path)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config file %s", path)
	}
	return config, nil
}

// Validate checks the fields the node cannot run without.
func (c *NodeLocalConfig) Validate() error {
	if c.DistributorParams == nil {
		return errors.New("missing Distributor section")
	}
	d := c.DistributorParams
	if d.ChainID == 0 {
		return errors.New("Distributor.ChainID must be non-zero")
	}
	if !common.IsHexAddress(d.VerifyingContract) {
		return errors.Errorf("Distributor.VerifyingContract %q is not an address", d.VerifyingContract)
	}
	if !common.IsHexAddress(d.Treasury) {
		return errors.Errorf("Distributor.Treasury %q is not an address", d.Treasury)
	}
	if d.MaxBatchSize <= 0 {
		return errors.New("Distributor.MaxBatchSize must be positive")
	}
	if len(d.Verifiers) == 0 {
		return errors.New("Distributor.Verifiers must name at least one identity")
	}
	for _, lists := range [][]string{d.TokenWhitelist, d.Verifiers, d.Admins} {
		for _, a := range lists {
			if !common.IsHexAddress(a) {
				return errors.Errorf("%q is not an address", a)
			}
		}
	}
	for _, b := range d.InitialBalances {
		if !common.IsHexAddress(b.Token) || !common.IsHexAddress(b.Holder) {
			return errors.Errorf("invalid initial balance %+v", b)
		}
		if _, ok := new(big.Int).SetString(b.Amount, 10); !ok {
			return errors.Errorf("initial balance amount %q is not a decimal number", b.Amount)
		}
	}
	if c.FileStore == nil || c.FileStore.Path == "" {
		return errors.New("missing FileStore.Path")
	}
	return nil
}

// Addresses parses a validated address list.
func Addresses(list []string) []common.Address {
	out := make([]common.Address, len(list))
	for i, a := range list {
		out[i] = common.HexToAddress(a)
	}
	return out
}
