package main

import (
	"os"

	"github.com/pupperhq/pupper-server/outboxworker"
)

func main() {
	if err := outboxworker.Run(); err != nil {
		os.Exit(1)
	}
}
