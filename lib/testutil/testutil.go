package testutil

import (
	"fmt"
	"testing"

	"nstools/lib/telemetry"
)

// Setup configures logging and telemetry for a test, verbose test runs
// log at debug level. Telemetry is torn down when the test ends.
func Setup(t testing.TB, name string) {
	t.Helper()
	cleanup := telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", name))
	t.Cleanup(cleanup)
}
