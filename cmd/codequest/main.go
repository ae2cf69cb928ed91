// Package main is the single-binary entrypoint for codequest.
package main

import "github.com/codequest-app/codequest/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
