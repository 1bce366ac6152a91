package main

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/addonsync/internal/command"
)

func main() {
	if err := command.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
