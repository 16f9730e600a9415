// Command resumectl is the operator CLI: migrations, whitelist and ledger
// inspection, and offline prompt and render checks.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
