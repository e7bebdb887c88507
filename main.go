// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/studios/despace/cmd/despace"

func main() {
	cmd.Execute()
}
