// Command assetaudit manages asset audit tasks from the terminal and serves
// them over HTTP.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/assetaudit/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || !exitErr.Reported {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
