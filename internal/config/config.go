/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

// Package config resolves small numeric and duration defaults from the
// environment, for settings a caller usually wants to tune without
// plumbing a configuration framework through the whole client.
package config

import (
	"os"
	"strconv"
	"time"
)

// GetString returns the environment variable value if set and non-empty, otherwise the default.
func GetString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetInt returns the environment variable value as int if set and valid, otherwise the default.
func GetInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// GetDuration returns the environment variable value as time.Duration if set and valid, otherwise the default.
func GetDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// GetBool returns the environment variable value as bool if set, otherwise the default.
func GetBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
