// Command prebake is the CLI entry point; see cmd.Execute.
package main

import (
	"fmt"
	"os"

	"github.com/mstoykov/prebake/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
