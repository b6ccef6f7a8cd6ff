package main

import (
	"os"

	"github.com/soundprediction/sifter/cmd/sifter"
)

func main() {
	if err := sifter.Execute(); err != nil {
		os.Exit(1)
	}
}
