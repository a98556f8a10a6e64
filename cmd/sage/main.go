package main

import (
	"os"

	"sage/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
