// Package config carries file, environment, and flag configuration for the
// pilot daemons. Mains layer the sources as defaults < file < environment <
// flags, so every knob can be set per-deployment without rebuilding.
package config

import "os"

// envPrefix namespaces every environment variable the daemons read.
const envPrefix = "PILOT_"

// getEnv reads a prefixed environment variable, falling back to def.
func getEnv(key, def string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return def
}
