// Command nowsound runs the live-looping audio engine.
package main

import (
	"fmt"
	"os"

	"github.com/nowsound-go/nowsound/cmd"
)

func main() {
	if err := cmd.RootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
