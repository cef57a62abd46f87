// Package config loads the ambient Environment record: ops-level settings
// (log level, data directories, server port, scheduler cron schedule, the
// reportsink bucket) as distinct from the domain.Parameters business
// configuration that callers pass to pkg/analysis. Environment overlay follows env-first,
// matching the teacher's TRADER_DATA_DIR/DATA_DIR precedence convention.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const envPrefix = "ALLOCENGINE_"

// ValidationError is one rejected or malformed environment key.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Message) }

// ValidationErrors accumulates every ValidationError found during Load,
// following the teacher's validator.go multi-error convention.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	messages := make([]string, len(e))
	for i, err := range e {
		messages[i] = err.Error()
	}
	return strings.Join(messages, "; ")
}

// knownKeys is the closed set of recognised ALLOCENGINE_* environment
// variables; anything else with the prefix is rejected at load, per
// SPEC_FULL.md's "replace dict-of-dicts configuration with a closed record."
var knownKeys = map[string]bool{
	"ALLOCENGINE_LOG_LEVEL":          true,
	"ALLOCENGINE_DATA_DIR":           true,
	"ALLOCENGINE_SERVER_PORT":        true,
	"ALLOCENGINE_SCHEDULER_CRON":     true,
	"ALLOCENGINE_SESSION_CACHE_PATH": true,
	"ALLOCENGINE_REPORTSINK_BUCKET":  true,
	"ALLOCENGINE_REPORTSINK_REGION":  true,
}

// Environment is the closed ambient configuration record threaded through
// cmd/server and cmd/scheduler.
type Environment struct {
	LogLevel         string
	DataDir          string
	ServerPort       int
	SchedulerCron    string
	SessionCachePath string
	ReportSinkBucket string
	ReportSinkRegion string
}

// Load reads an optional .env file (missing is not an error, matching
// godotenv's typical local-dev use) then the process environment, rejecting
// any ALLOCENGINE_* key outside the known set.
func Load() (*Environment, error) {
	_ = godotenv.Load()

	var errs ValidationErrors
	for _, kv := range os.Environ() {
		key := strings.SplitN(kv, "=", 2)[0]
		if strings.HasPrefix(key, envPrefix) && !knownKeys[key] {
			errs = append(errs, ValidationError{Field: key, Message: "unrecognised configuration key"})
		}
	}

	dataDir := getEnv("ALLOCENGINE_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		errs = append(errs, ValidationError{Field: "ALLOCENGINE_DATA_DIR", Message: err.Error()})
		absDataDir = dataDir
	}

	portStr := getEnv("ALLOCENGINE_SERVER_PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, ValidationError{Field: "ALLOCENGINE_SERVER_PORT", Message: "must be an integer"})
	}

	env := &Environment{
		LogLevel:         getEnv("ALLOCENGINE_LOG_LEVEL", "info"),
		DataDir:          absDataDir,
		ServerPort:       port,
		SchedulerCron:    getEnv("ALLOCENGINE_SCHEDULER_CRON", "0 6 * * *"),
		SessionCachePath: getEnv("ALLOCENGINE_SESSION_CACHE_PATH", filepath.Join(absDataDir, "session_cache.db")),
		ReportSinkBucket: getEnv("ALLOCENGINE_REPORTSINK_BUCKET", ""),
		ReportSinkRegion: getEnv("ALLOCENGINE_REPORTSINK_REGION", "us-east-1"),
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return env, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
