/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

// DefaultMaxBatchSize matches the deployed distributor's cap.
const DefaultMaxBatchSize = 500

// DefaultConfig returns the configuration a loaded file is merged over.
func DefaultConfig() *NodeLocalConfig {
	return &NodeLocalConfig{
		GeneralConfig: &GeneralConfig{
			ListenAddress: "127.0.0.1",
			ListenPort:    7070,
			LogSpec:       "info",
		},
		DistributorParams: &DistributorParams{
			MaxBatchSize: DefaultMaxBatchSize,
		},
		FileStore:  &FileStore{},
		Monitoring: &Monitoring{},
	}
}
