/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/akshayp9/batch-distributor-dual-sig/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
General:
  ListenAddress: "0.0.0.0"
  ListenPort: 8080
Distributor:
  ChainID: 1337
  VerifyingContract: "0x00000000000000000000000000000000000000d1"
  Treasury: "0x000000000000000000000000000000000000007e"
  MaxBatchSize: 200
  EnforceDeadline: true
  TokenWhitelist:
    - "0x0000000000000000000000000000000000000070"
  Verifiers:
    - "0x00000000000000000000000000000000000000bb"
  Admins:
    - "0x00000000000000000000000000000000000000cc"
  InitialBalances:
    - Token: "0x0000000000000000000000000000000000000070"
      Holder: "0x000000000000000000000000000000000000007e"
      Amount: "1000000000000000000"
FileStore:
  Path: "/var/lib/distributor"
Monitoring:
  ListenAddress: "127.0.0.1:9100"
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	c, err := config.Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", c.GeneralConfig.ListenAddress)
	assert.Equal(t, 8080, c.GeneralConfig.ListenPort)
	assert.Equal(t, uint64(1337), c.DistributorParams.ChainID)
	assert.Equal(t, 200, c.DistributorParams.MaxBatchSize)
	assert.True(t, c.DistributorParams.EnforceDeadline)
	assert.Len(t, c.DistributorParams.TokenWhitelist, 1)
	require.Len(t, c.DistributorParams.InitialBalances, 1)
	assert.Equal(t, "1000000000000000000", c.DistributorParams.InitialBalances[0].Amount)
	assert.Equal(t, "/var/lib/distributor", c.FileStore.Path)
}

func TestLoadAppliesDefaults(t *testing.T) {
	minimal := `
Distributor:
  ChainID: 1
  VerifyingContract: "0x00000000000000000000000000000000000000d1"
  Treasury: "0x000000000000000000000000000000000000007e"
  Verifiers:
    - "0x00000000000000000000000000000000000000bb"
FileStore:
  Path: "/tmp/dist"
`
	c, err := config.Load(writeConfig(t, minimal))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultMaxBatchSize, c.DistributorParams.MaxBatchSize)
	assert.Equal(t, "127.0.0.1", c.GeneralConfig.ListenAddress)
	assert.False(t, c.DistributorParams.EnforceDeadline)
}

func TestLoadRejectsInvalid(t *testing.T) {
	for name, content := range map[string]string{
		"missing chain id": `
Distributor:
  VerifyingContract: "0x00000000000000000000000000000000000000d1"
  Treasury: "0x000000000000000000000000000000000000007e"
  Verifiers: ["0x00000000000000000000000000000000000000bb"]
FileStore:
  Path: "/tmp/dist"
`,
		"bad contract address": `
Distributor:
  ChainID: 1
  VerifyingContract: "not-an-address"
  Treasury: "0x000000000000000000000000000000000000007e"
  Verifiers: ["0x00000000000000000000000000000000000000bb"]
FileStore:
  Path: "/tmp/dist"
`,
		"no verifiers": `
Distributor:
  ChainID: 1
  VerifyingContract: "0x00000000000000000000000000000000000000d1"
  Treasury: "0x000000000000000000000000000000000000007e"
FileStore:
  Path: "/tmp/dist"
`,
		"bad initial balance amount": `
Distributor:
  ChainID: 1
  VerifyingContract: "0x00000000000000000000000000000000000000d1"
  Treasury: "0x000000000000000000000000000000000000007e"
  Verifiers: ["0x00000000000000000000000000000000000000bb"]
  InitialBalances:
    - Token: "0x0000000000000000000000000000000000000070"
      Holder: "0x000000000000000000000000000000000000007e"
      Amount: "lots"
FileStore:
  Path: "/tmp/dist"
`,
		"no file store": `
Distributor:
  ChainID: 1
  VerifyingContract: "0x00000000000000000000000000000000000000d1"
  Treasury: "0x000000000000000000000000000000000000007e"
  Verifiers: ["0x00000000000000000000000000000000000000bb"]
`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
