package main

import (
	"os"

	"github.com/zPat/easy-edgedb/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
