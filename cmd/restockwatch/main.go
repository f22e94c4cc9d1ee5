package main

import (
	"os"

	"github.com/ppiankov/restockwatch/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
