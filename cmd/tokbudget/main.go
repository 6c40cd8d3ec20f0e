package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tokbudget/internal/cli"
)

func main() {
	if err := cli.NewCLI(nil).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "tokbudget: %v\n", err)
		os.Exit(1)
	}
}
