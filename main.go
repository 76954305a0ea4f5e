package main

import (
	"os"

	"github.com/usitalopin-lang/licitaciones-chile-ia/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
