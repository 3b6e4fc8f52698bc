package main

import (
	"os"

	"github.com/lugondev/go-tokenswap/cmd/tokenswap/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
