package main

import (
	"os"

	"github.com/pupperhq/pupper-server/pupperservice"
)

func main() {
	if err := pupperservice.Run(); err != nil {
		os.Exit(1)
	}
}
