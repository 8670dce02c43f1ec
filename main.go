package main

import (
	"os"

	"github.com/stratanet/stratad/app"
)

func main() {
	if err := app.StartApp(); err != nil {
		os.Exit(1)
	}
}
