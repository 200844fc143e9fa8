package main

import (
	"log"
	"os"

	"github.com/you/trisonapp/internal/app"
	"github.com/you/trisonapp/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := app.Run(cfg, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.Fatalf("trison: %v", err)
	}
}
