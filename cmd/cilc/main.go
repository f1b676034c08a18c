package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/teris-io/cli"

	"github.com/cil-project/cilc/pkg/compile"
)

var Description = strings.ReplaceAll(`
cilc resolves and lowers a set of CIL policy modules into a policy database:
every name is resolved, every macro call and block inheritance expanded, and
the result lowered into dense-valued avtab entries, transitions, constraints
and ocontexts. The lowered database is written out as a textual dump.
`, "\n", " ")

var Cilc = cli.New(Description).
	WithArg(cli.NewArg("inputs", "The source (.cil) files to compile").AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("mls", "Builds an MLS policy (sensitivities/categories/ranges)").WithType(cli.TypeBool)).
	WithOption(cli.NewOption("target", "Target platform name").WithType(cli.TypeString)).
	WithOption(cli.NewOption("disable-dontaudit", "Drops dontaudit rules from the lowered policy").WithType(cli.TypeBool)).
	WithOption(cli.NewOption("output", "Output file for the textual PDB dump (default stdout)").WithType(cli.TypeString)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	var sources []compile.Source
	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return -1
		}
		sources = append(sources, compile.Source{Name: path, Text: content})
	}

	opts := compile.Options{TargetPlatform: options["target"]}
	if _, enabled := options["mls"]; enabled {
		opts.MLS = true
	}
	if _, enabled := options["disable-dontaudit"]; enabled {
		opts.DisableDontaudit = true
	}

	lowered, err := compile.Compile(sources, opts)
	if err != nil {
		fmt.Printf("ERROR: Unable to compile policy: %s\n", err)
		return -1
	}

	output := os.Stdout
	if path, set := options["output"]; set {
		f, err := os.Create(path)
		if err != nil {
			fmt.Printf("ERROR: Unable to open output file: %s\n", err)
			return -1
		}
		defer f.Close()
		output = f
	}

	if err := lowered.Dump(output); err != nil {
		fmt.Printf("ERROR: Unable to write policy dump: %s\n", err)
		return -1
	}

	return 0
}

func main() { os.Exit(Cilc.Run(os.Args, os.Stdout)) }
