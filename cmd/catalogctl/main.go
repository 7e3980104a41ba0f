package main

import (
	"fmt"
	"io"
	"os"
	"sort"
)

type command struct {
	summary string
	run     func(args []string, stdout, stderr io.Writer) error
}

var commands = map[string]command{
	"validate": {"check the catalog and print its report", runValidate},
	"export":   {"write the catalog as a JSON or YAML profile", runExport},
	"plan":     {"print the read request frames of one poll cycle", runPlan},
	"decode":   {"decode a captured read response frame", runDecode},
	"encode":   {"build the write frame for a holding register value", runEncode},
	"publish":  {"store the catalog profile in PostgreSQL", runPublish},
	"profiles": {"list, show or delete profiles stored in PostgreSQL", runProfiles},
	"token":    {"issue a bearer token for the reload endpoint", runToken},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return 2
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}

	if err := cmd.run(args[1:], stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "catalogctl %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: catalogctl <command> [flags]")
	fmt.Fprintln(w)

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-9s %s\n", name, commands[name].summary)
	}
}
