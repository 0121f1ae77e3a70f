// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package main is the entry point for the hyperbase admin CLI.
package main

import (
	"hyperbase/cli/cmd"
)

func main() {
	cmd.Execute()
}
