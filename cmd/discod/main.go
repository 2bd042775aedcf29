package main

import (
	"fmt"
	"os"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v":
			fmt.Printf("discod %s\n", Version)
			return
		case "serve":
			// Handle discod serve subcommand
			if err := runServe(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "fetch":
			// Handle discod fetch subcommand
			code, err := runFetch(os.Args[2:])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			os.Exit(code)
		case "--help", "-h", "help":
		default:
			fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n\n", os.Args[1])
			printUsage()
			os.Exit(1)
		}
	}

	printUsage()
}

func printUsage() {
	fmt.Println("discod - signed discovery catalog daemon")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  discod serve [options]          Run the refresher and local catalog API")
	fmt.Println("  discod fetch <kind> [options]   Resolve one manifest and print the outcome")
	fmt.Println("  discod --version                Print version")
	fmt.Println()
	fmt.Println("Manifest kinds: server_list, organization_list")
	fmt.Println()
	fmt.Println("Run 'discod <command> --help' for command options.")
}
