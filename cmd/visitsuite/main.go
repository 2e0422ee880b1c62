package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"visitsuite/internal/visitsuitecli"
)

func main() {
	if err := visitsuitecli.Execute(os.Args[1:]); err != nil {
		if errors.Is(err, visitsuitecli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr)
			visitsuitecli.PrintUsage(os.Stderr)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
