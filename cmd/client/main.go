package main

import (
	"log"

	"github.com/dmitrijs2005/imgvault/internal/client/cli"
)

func main() {

	if err := cli.Execute(); err != nil {
		log.Printf("%v", err)
	}

}
