package main

import (
	"os"

	"github.com/sheikh-saqib/crowdfunding-escrow/cmd/escrowctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
