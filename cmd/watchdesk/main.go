// Command watchdesk is the command-line client for the monitoring backend.
package main

import (
	"os"

	"github.com/oremus-labs/watchdesk/internal/watchcli"
)

func main() {
	if err := watchcli.Execute(); err != nil {
		os.Exit(1)
	}
}
