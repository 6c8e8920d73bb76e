// Command obsctl converts, validates, imports and exports sea-ice
// observation files from the command line.
//
// Usage:
//
//	obsctl detect FILE
//	obsctl validate FILE
//	obsctl convert FILE --to aspect [--out PATH]
//	obsctl import FILE [--voyage ID]
//	obsctl export VOYAGE_ID --format tabular [--out PATH]
//	obsctl voyages
//
// Commands that touch the record store use DB_PATH (or --db).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Overload()

	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
