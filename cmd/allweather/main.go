package main

import (
	"os"

	"github.com/hxlyu/allweather/cmd/allweather/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
