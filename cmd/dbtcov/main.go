// Package main is the entry point for the dbtcov CLI tool.
package main

import (
	"github.com/dbtcov/dbtcov/internal/cmd"
)

func main() {
	cmd.Execute()
}
