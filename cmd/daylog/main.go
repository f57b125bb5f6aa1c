package main

import (
	"context"
	"fmt"
	"os"

	"github.com/MrSnakeDoc/daylog/internal/cli"
	"github.com/MrSnakeDoc/daylog/internal/config"
)

func main() {
	if err := cli.NewRootCmd(config.Load).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "❌ daylog: %v\n", err)
		os.Exit(1)
	}
}
