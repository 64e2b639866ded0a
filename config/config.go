package config

import "os"

func IsDebug() bool {
	return os.Getenv("ENV") == "debug"
}

func IsTest() bool {
	return os.Getenv("ENV") == "test"
}

// PolicyPath returns the policy file path set by PORTMIRROR_POLICY, or def when it is unset.
func PolicyPath(def string) string {
	if p := os.Getenv("PORTMIRROR_POLICY"); p != "" {
		return p
	}
	return def
}

// MetricsAddr returns the listen address of the metrics endpoint set by PORTMIRROR_METRICS_ADDR.
// An empty string disables the endpoint.
func MetricsAddr(def string) string {
	if a, ok := os.LookupEnv("PORTMIRROR_METRICS_ADDR"); ok {
		return a
	}
	return def
}
