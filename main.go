// advisor - terminal client for the financial advisor agent.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import "github.com/jeranaias/advisor-tui/internal/cli"

func main() {
	cli.Execute()
}
