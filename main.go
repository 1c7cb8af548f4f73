// Package main is the entry point for the arpreflect ARP classifier.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/arpreflect/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
