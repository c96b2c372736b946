package telemetry

import (
	"os"
)

var (
	featuresEnabled bool
	observeEnabled  bool
)

func init() {
	// Read once at process start. Mid-run environment changes have no effect.
	featuresEnabled = os.Getenv("RA_FEATURES") == "1"

	// Observe: default to 1 when features=1 and RA_OBSERVE_JSON is unset; honour explicit 0/1.
	if v, ok := os.LookupEnv("RA_OBSERVE_JSON"); ok {
		observeEnabled = (v == "1")
	} else {
		observeEnabled = featuresEnabled
	}
}

// FeaturesEnabled reports whether question/answer feature events are enabled.
func FeaturesEnabled() bool {
	if os.Getenv("RA_FEATURES") == "1" {
		return true
	}
	return featuresEnabled
}

// ObserveEnabled reports whether JSONL emission was enabled at startup, considering feature defaults.
func ObserveEnabled() bool {
	// Preserve startup-evaluated default, but allow tests to toggle mid-run via env override.
	if v, ok := os.LookupEnv("RA_OBSERVE_JSON"); ok {
		return v == "1"
	}
	return observeEnabled
}

// ArtifactsDir is where events.jsonl is written. Defaults to .agent in the working directory.
func ArtifactsDir() string {
	if v := os.Getenv("RA_ARTIFACTS_DIR"); v != "" {
		return v
	}
	return ".agent"
}
