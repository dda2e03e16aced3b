package main

import (
	"os"

	"github.com/sixthCow/rebalance-cli/internal/app"
)

func main() {
	os.Exit(app.NewRunner().Run(os.Args[1:]))
}
