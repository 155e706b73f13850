// Package main is the entry point of the vmfork command.
package main

import "github.com/sarchlab/vmfork/vmfork/cmd"

func main() {
	cmd.Execute()
}
