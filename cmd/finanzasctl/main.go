// Command finanzasctl is the operator CLI: migrations, seeding, CSV import
// and export, and summaries printed as JSON.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
