package telemetry

import (
	"context"
	"testing"
)

// SetupForTesting configures logging and, when a telemetry.json5 is found,
// exporters for the duration of a test.
func SetupForTesting(t testing.TB, serviceName string) func() {
	InitSlog(testing.Verbose())
	tel, err := SetupFromEnv(context.Background(), serviceName)
	if err != nil {
		t.Fatal(err)
	}
	return func() {
		err := tel.Shutdown(context.Background())
		if err != nil {
			t.Fatal(err)
		}
	}
}
