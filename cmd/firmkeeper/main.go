// Command firmkeeper validates and repairs law firm records.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/firmkeeper/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
