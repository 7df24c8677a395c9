package main

import (
	"encoding/json"
	"os"
)

// outputJSON writes v to stdout as pretty-printed JSON, for subcommands
// run under --json.
func outputJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
