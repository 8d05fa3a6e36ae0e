package main

import (
	"os"

	"github.com/you/tourism-booking/services/tourism-service/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
