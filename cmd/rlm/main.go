// Command rlm answers queries with recursive code-acting language models.
package main

import (
	"os"

	"github.com/hupe1980/rlmesh/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
