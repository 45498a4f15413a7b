// Command empirescan lists the empires in a user_empire_designs.txt file.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/talgya/empire-exchange/internal/clausewitz"
	"github.com/talgya/empire-exchange/internal/empire"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "empirescan:", err)
		os.Exit(1)
	}
}

// run reads the file named in args, or stdin when none is given, and prints
// one line per empire, a JSON array with -json, or the raw top-level blocks
// with -blocks.
func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("empirescan", flag.ContinueOnError)
	fs.SetOutput(stdout)
	fs.Usage = func() {
		fmt.Fprint(stdout, "Usage:\n  empirescan [-json | -blocks] [FILE]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	asJSON := fs.Bool("json", false, "print a JSON array instead of one line per empire")
	rawBlocks := fs.Bool("blocks", false, "print each top-level block as found, separated by blank lines")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *asJSON && *rawBlocks {
		return errors.New("-json and -blocks are mutually exclusive")
	}

	in := stdin
	if fs.NArg() > 0 {
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	text := clausewitz.DecodeUpload(raw)

	if *rawBlocks {
		for _, block := range empire.Blocks(text) {
			if _, err := fmt.Fprintf(stdout, "%s\n}\n\n", strings.TrimSpace(block)); err != nil {
				return err
			}
		}
		return nil
	}

	empires := empire.Parse(text)

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(empires)
	}
	for _, e := range empires {
		if _, err := fmt.Fprintln(stdout, e.String()); err != nil {
			return err
		}
	}
	return nil
}
