package main

import (
	"log"

	"github.com/spigell/llm-labs/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
