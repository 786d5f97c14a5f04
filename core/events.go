/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package core

import "github.com/akshayp9/batch-distributor-dual-sig/common/types"

// LogSink writes audit events to the application log.
type LogSink struct {
	Logger types.Logger
}

var _ types.EventSink = (*LogSink)(nil)

func (s *LogSink) TransferExecuted(e types.TransferEvent) {
	s.Logger.Infof("%s", e)
}

func (s *LogSink) BatchDistributed(e types.DistributionEvent) {
	s.Logger.Infof("%s", e)
}
