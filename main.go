package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/spigell/resume-refiner/cmd"
)

func main() {
	// A missing .env file is fine; variables may come from the environment.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
