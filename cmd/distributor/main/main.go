/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"os"

	"github.com/akshayp9/batch-distributor-dual-sig/cmd/distributor"
)

func main() {
	cli := distributor.NewCLI()
	<-cli.Run(os.Args[1:])
}
