package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"netscope/pkg/cli"
	"netscope/pkg/version"
)

func printUsage() {
	fmt.Printf(`netscope - Live Network Traffic Monitor %s

USAGE:
    netscope <command> [options]

COMMANDS:
    watch        Capture and analyze traffic on an interface
    interfaces   List capture-capable network interfaces
    inspect      Display recorded hostname events
    install      Seed the user config directory with default rule files
    version      Show version information

EXAMPLES:
    netscope watch --interface eth0
    netscope watch --interface wlan0 --watchlist watchlist.txt --web-port 8080
    netscope inspect --hostname example.com --since 24h
    netscope interfaces

For detailed help on any command:
    netscope <command> --help

`, version.FormatCompact())
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "watch":
		watchCmd := flag.NewFlagSet("watch", flag.ExitOnError)
		iface := watchCmd.String("interface", "", "Network interface to capture from (required)")
		wlPath := watchCmd.String("watchlist", "", "Watchlist file (kind:pattern:label lines)")
		descPath := watchCmd.String("descriptions", "", "Description database file (pattern:category:description lines)")
		alertLog := watchCmd.String("alert-log", "", "Append-only alert log file")
		dbPath := watchCmd.String("db", "", "SQLite database for hostname events (empty disables)")
		webPort := watchCmd.Int("web-port", 0, "Port for the live web API/WebSocket (0 disables)")
		retention := watchCmd.Int("retention", 90, "Recorded event retention in days")
		debug := watchCmd.Bool("debug", false, "Enable debug logging")

		watchCmd.Usage = func() {
			fmt.Printf("USAGE: netscope watch [options]\n\nOPTIONS:\n")
			watchCmd.PrintDefaults()
			fmt.Printf(`
DESCRIPTION:
    Capture packets on the given interface, decode them, match them against
    the watchlist and description database, and keep live statistics.

SECURITY:
    Capturing requires CAP_NET_RAW (or root).

EXAMPLES:
    netscope watch --interface eth0
    netscope watch --interface wlan0 --watchlist watchlist.txt --alert-log alerts.log
`)
		}

		if err := watchCmd.Parse(os.Args[2:]); err != nil {
			watchCmd.Usage()
			os.Exit(1)
		}
		if *iface == "" {
			fmt.Println("Error: --interface is required")
			watchCmd.Usage()
			os.Exit(1)
		}

		err := cli.Watch(cli.WatchOptions{
			Interface:     *iface,
			WatchlistPath: *wlPath,
			DescPath:      *descPath,
			AlertLogPath:  *alertLog,
			DBPath:        *dbPath,
			WebPort:       *webPort,
			RetentionDays: *retention,
			Debug:         *debug,
		})
		if err != nil {
			log.Fatalf("Watch command failed: %v", err)
		}

	case "interfaces":
		if err := cli.Interfaces(); err != nil {
			log.Fatalf("Failed to list interfaces: %v", err)
		}

	case "inspect":
		inspectCmd := flag.NewFlagSet("inspect", flag.ExitOnError)
		dbPath := inspectCmd.String("db", "netscope.sqlite", "Database path")
		limit := inspectCmd.Int("limit", 50, "Number of records to show")
		ip := inspectCmd.String("ip", "", "Filter by source or destination IP")
		hostname := inspectCmd.String("hostname", "", "Filter by hostname (partial match)")
		since := inspectCmd.String("since", "", "Show records since (e.g. '1h', '24h')")
		ifaceFilter := inspectCmd.String("interface", "", "Filter by interface")

		if err := inspectCmd.Parse(os.Args[2:]); err != nil {
			inspectCmd.Usage()
			os.Exit(1)
		}
		if err := cli.Inspect(*dbPath, *limit, *ip, *hostname, *since, *ifaceFilter); err != nil {
			log.Fatalf("Inspect command failed: %v", err)
		}

	case "install":
		installCmd := flag.NewFlagSet("install", flag.ExitOnError)
		from := installCmd.String("from", "configs", "Directory holding the default rule files")

		if err := installCmd.Parse(os.Args[2:]); err != nil {
			installCmd.Usage()
			os.Exit(1)
		}
		if err := cli.Install(*from); err != nil {
			log.Fatalf("Install command failed: %v", err)
		}

	case "version":
		fmt.Print(version.FormatInfo())

	case "-h", "--help":
		printUsage()

	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}
