/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/
package ledger

import (
	"github.com/akshayp9/batch-distributor-dual-sig/common/monitoring"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	batchesMarkedOpts = monitoring.CounterOpts{
		Namespace: "executed_ledger",
		Name:      "batches_marked_total",
		Help:      "The total number of batch ids marked executed.",
	}

	rollbacksOpts = monitoring.CounterOpts{
		Namespace: "executed_ledger",
		Name:      "rollbacks_total",
		Help:      "The total number of executed marks removed by the engine rollback path.",
	}
)

type ExecutedLedgerMetrics struct {
	BatchesMarked prometheus.Counter
	Rollbacks     prometheus.Counter
}

func NewExecutedLedgerMetrics(p *monitoring.Provider) *ExecutedLedgerMetrics {
	return &ExecutedLedgerMetrics{
		BatchesMarked: p.NewCounter(batchesMarkedOpts).WithLabelValues(),
		Rollbacks:     p.NewCounter(rollbacksOpts).WithLabelValues(),
	}
}
