package main

import (
	"os"

	"github.com/teranos/jobsweep/cmd/commands"
)

func main() {
	os.Exit(commands.Execute(commands.NewRetryCmd()))
}
