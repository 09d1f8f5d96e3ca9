package main

import (
	"fmt"
	"os"

	"gitlab.com/tozd/go/errors"

	"github.com/sonemaro/sortitor/cmd/sortitor/app"
	"github.com/sonemaro/sortitor/cmd/sortitor/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		if errors.Is(err, app.ErrCancelled) {
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
