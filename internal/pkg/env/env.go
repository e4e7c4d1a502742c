// Package env loads configuration from a .env file with OS environment
// fallback. Every tunable in the service (quotas, rate limits, Redis and
// MySQL coordinates, S3 mirror credentials) is read through GetEnv and the
// typed variants below.
package env

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var Env map[string]string

// GetEnv returns the value for key from the loaded .env file, falling back
// to the OS environment (Docker, CI) and then to def.
func GetEnv(key, def string) string {
	if val, ok := Env[key]; ok {
		return val
	}
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// GetEnvInt reads an integer value; unset or unparsable values yield def.
func GetEnvInt(key string, def int) int {
	if v, err := strconv.Atoi(GetEnv(key, "")); err == nil {
		return v
	}
	return def
}

// GetEnvInt64 reads a 64-bit integer, used for byte-sized quotas.
func GetEnvInt64(key string, def int64) int64 {
	if v, err := strconv.ParseInt(GetEnv(key, ""), 10, 64); err == nil {
		return v
	}
	return def
}

// GetEnvBool treats exactly "true" as true, anything else as def.
func GetEnvBool(key string, def bool) bool {
	switch GetEnv(key, "") {
	case "true":
		return true
	case "false":
		return false
	}
	return def
}

// SetupEnvFile locates and reads the service's .env file. PLEXADDONS_ENV_FILE
// overrides the search; otherwise the working directory and the project root
// relative to the cmd/plexaddons and cmd/migrate binaries are tried in order.
func SetupEnvFile() {
	var candidates []string
	if override := os.Getenv("PLEXADDONS_ENV_FILE"); override != "" {
		candidates = []string{override}
	} else {
		candidates = []string{
			".env",          // repo root or container workdir
			"../../.env",    // go run ./cmd/plexaddons or ./cmd/migrate
			"../../../.env", // package-level tests two dirs deep
		}
	}

	for _, path := range candidates {
		if parsed, err := godotenv.Read(path); err == nil {
			Env = parsed
			return
		}
	}

	// No .env file found; run on OS environment only.
	Env = map[string]string{}
}

func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}
