package main

import (
	"github.com/joho/godotenv"

	"github.com/VladChristmas/bot/internal/app"
)

func main() {
	// .env is optional; real deployments set the variables directly.
	_ = godotenv.Load()

	app.Run()
}
