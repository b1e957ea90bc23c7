// Package cli provides the command-line interface for CortexCommittee
package cli

import (
	"fmt"
	"os"

	"github.com/dyike/CortexCommittee/internal/display"
)

// Run starts the CLI application
func Run() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, display.Error(err))
		os.Exit(1)
	}
}
