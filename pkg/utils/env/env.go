package env

import "os"

// Get environment variable. If missing/empty, return fallback value.
func GetOr(name, fallback string) string {
	val := os.Getenv(name)
	if val == "" {
		return fallback
	}
	return val
}
