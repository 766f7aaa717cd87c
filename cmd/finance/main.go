// Command finance is the offline-first personal finance client.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kolpmikel/FinanceApp/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
