// Package config reads typed settings from the environment. A missing
// variable yields the fallback; an unparseable one logs and yields the
// fallback rather than failing startup.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

func Get(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func GetInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("[Config] Invalid integer for %s: %s, using default: %d", key, raw, fallback)
		return fallback
	}
	return value
}

func GetDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("[Config] Invalid duration for %s: %s, using default: %s", key, raw, fallback)
		return fallback
	}
	return value
}
