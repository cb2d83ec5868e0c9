package main

import (
	"os"

	"github.com/dgallion1/ultratext/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
