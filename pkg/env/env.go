package env

import "os"

// Get returns the value of key, or fallback when it is unset or empty.
// Used for the few variables read outside envconfig (PORT, LOG_FORMAT).
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
