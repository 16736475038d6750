// Command statsctl runs rebuilds and reads the statistics cache from the
// command line, against the same stores the server uses.
package main

import (
	"fmt"
	"os"
	_ "time/tzdata"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
