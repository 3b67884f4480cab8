// Command eptexts collects the European Parliament's adopted texts into a
// JSON file, optionally mirrored to SQLite, or serves scrapes over HTTP.
package main

import (
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
