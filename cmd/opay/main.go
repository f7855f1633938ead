// Package main is the entry point for the opay CLI and settings server.
package main

import (
	"github.com/donaldgifford/opay/cmd/opay/cmd"
)

func main() {
	cmd.Execute()
}
