package main

import (
	"log"

	"github.com/resqlabs/console/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
