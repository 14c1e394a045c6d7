package config

import (
	"github.com/joho/godotenv"
)

// LoadEnv reads .env when present. Missing file is not an error.
func LoadEnv() {
	_ = godotenv.Load()
}
