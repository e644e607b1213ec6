package main

import (
	"log"

	"obsidion/internal/bot"
	"obsidion/internal/config"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	obsidion, err := bot.New(cfg)
	if err != nil {
		log.Fatal("Failed to create bot:", err)
	}

	if err := obsidion.Start(); err != nil {
		log.Fatal("Failed to start bot:", err)
	}
}
