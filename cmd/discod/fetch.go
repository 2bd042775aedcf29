package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/lumivpn/discovery/internal/config"
	"github.com/lumivpn/discovery/internal/discovery"
	"github.com/lumivpn/discovery/internal/fetch"
	"github.com/lumivpn/discovery/internal/sign"
)

// runFetch handles the `discod fetch` subcommand.
// Returns an exit code (0 = catalog ready, 1 = any other outcome).
func runFetch(args []string) (int, error) {
	showHelp := false
	configPath := ""
	asJSON := false
	kindArg := ""

	for i := 0; i < len(args); i++ {
		switch arg := args[i]; arg {
		case "--help", "-h":
			showHelp = true
		case "--config", "-c":
			if i+1 >= len(args) {
				return 1, fmt.Errorf("--config requires a path")
			}
			i++
			configPath = args[i]
		case "--json":
			asJSON = true
		default:
			// Anything not starting with - is the manifest kind
			if len(arg) > 0 && arg[0] != '-' && kindArg == "" {
				kindArg = arg
			} else {
				return 1, fmt.Errorf("unknown option: %s\nRun 'discod fetch --help' for usage", arg)
			}
		}
	}

	if showHelp {
		printFetchHelp()
		return 0, nil
	}

	if kindArg == "" {
		return 1, fmt.Errorf("manifest kind required (server_list or organization_list)")
	}
	kind, err := discovery.ParseKind(kindArg)
	if err != nil {
		return 1, err
	}

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return 1, fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg.Log)

	ring, err := sign.ParseKeyring(cfg.Authority.PublicKeys)
	if err != nil {
		return 1, fmt.Errorf("parse pinned public keys: %w", err)
	}

	client := fetch.NewClient(cfg.Refresh.FetchTimeout)
	client.SetLogger(log)

	pipeline, err := discovery.New(discovery.Config{
		BaseURL:         cfg.Authority.BaseURL,
		SignatureSuffix: cfg.Authority.SignatureSuffix,
		Keys:            ring,
		GoneStatuses:    fetch.NewStatusSet(cfg.Authority.GoneStatuses...),
		Fetcher:         client,
		Logger:          &log,
	})
	if err != nil {
		return 1, fmt.Errorf("create pipeline: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	out := pipeline.Resolve(ctx, kind)

	switch out.Status {
	case discovery.StatusReady:
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(out.Catalog); err != nil {
				return 1, fmt.Errorf("encode catalog: %w", err)
			}
		} else {
			fmt.Printf("%s: verified, %d entries\n", kind, out.Catalog.Len())
		}
		return 0, nil
	case discovery.StatusDeleted:
		fmt.Printf("%s: deleted by authority\n", kind)
		return 1, nil
	case discovery.StatusFetchFailed:
		return 1, fmt.Errorf("%s: fetch failed: %v", kind, out.Err)
	case discovery.StatusSignatureInvalid:
		return 1, fmt.Errorf("%s: signature did not verify against pinned keys", kind)
	case discovery.StatusMalformedCatalog:
		return 1, fmt.Errorf("%s: verified document did not parse: %v", kind, out.Err)
	default:
		return 1, fmt.Errorf("%s: unexpected outcome %s", kind, out.Status)
	}
}

func printFetchHelp() {
	fmt.Println("Usage: discod fetch <kind> [options]")
	fmt.Println()
	fmt.Println("Fetch, verify, and parse one manifest, then print the outcome.")
	fmt.Println()
	fmt.Println("Kinds:")
	fmt.Println("  server_list         The server catalog")
	fmt.Println("  organization_list   The organization catalog")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -c, --config <path>   Lua config file (default: none, built-in defaults)")
	fmt.Println("      --json            Print the verified catalog as JSON")
	fmt.Println("  -h, --help            Show this help")
}
