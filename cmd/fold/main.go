// Command fold replays a JSON event stream and prints the resulting account
// snapshot.
//
//	fold [-strict] [file]
//
// The stream is read from stdin when no file is given. A rejected stream
// prints its error code and exits with status 2.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rieske/account-aggregator-go/account"
	"github.com/rieske/account-aggregator-go/serialization"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("fold", flag.ContinueOnError)
	flags.SetOutput(stderr)
	strict := flags.Bool("strict", false, "reject account-created on an existing account")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	input := stdin
	if flags.NArg() > 0 {
		f, err := os.Open(flags.Arg(0))
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		defer f.Close()
		input = f
	}

	data, err := io.ReadAll(input)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	events, err := serialization.DecodeStream(data)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	var opts []account.Option
	if *strict {
		opts = append(opts, account.WithStrictCreation())
	}
	snapshot, err := account.NewAggregator(opts...).Fold(events)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snapshot); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}
