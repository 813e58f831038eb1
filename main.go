// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/goobits/vm/cmd/vm"

func main() {
	cmd.Execute()
}
