// Command baboon validates and compiles topic specs, runs conformance
// scenarios against the reference monitor and inspects recorded traces.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/baboon/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "baboon:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
