/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package types

import "fmt"

func (e TransferEvent) String() string {
	return fmt.Sprintf("Transfer: batch: %s, token: %s, recipient: %s, amount: %s",
		e.BatchID, e.Token, e.Recipient, e.Amount)
}

func (e DistributionEvent) String() string {
	return fmt.Sprintf("Distribution: batch: %s, token: %s, submitter: %s, executor: %s, recipients: %d, total: %s",
		e.BatchID, e.Token, e.Submitter, e.Executor, e.RecipientCount, e.TotalAmount)
}
