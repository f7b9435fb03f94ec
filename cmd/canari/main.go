// Canari records orchard inspection batches and fruit counts
package main

import (
	"fmt"
	"os"

	"github.com/ppiankov/canari/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
