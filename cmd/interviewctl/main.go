package main

import (
	"fmt"
	"os"

	"github.com/mind-engage/interviewbook/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "interviewctl:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
