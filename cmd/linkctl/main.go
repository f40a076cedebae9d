package main

import (
	"os"

	"github.com/dmitrijs2005/taglink/internal/linkctl"
)

func main() {
	if err := linkctl.Execute(); err != nil {
		os.Exit(1)
	}
}
