package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/gapurov/simple-dotfiles/internal/cli"
	"github.com/gapurov/simple-dotfiles/internal/version"
)

func main() {
	rootCmd := cli.NewRootCmd()

	header := &doc.GenManHeader{
		Title:   "DOTFILES",
		Section: "1",
		Source:  "dotfiles " + version.Version,
		Manual:  "dotfiles manual",
	}

	if err := doc.GenMan(rootCmd, header, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating man page: %v\n", err)
		os.Exit(1)
	}
}
