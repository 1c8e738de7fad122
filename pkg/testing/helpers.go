package testing

import (
	"context"
	"testing"
	"time"
)

// AssertEventually polls condition until it holds or timeout elapses
func AssertEventually(t *testing.T, condition func() bool, timeout time.Duration, message string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf("Condition not met within timeout: %s", message)
			return
		}
		<-ticker.C
	}
}

// CreateTestContext creates a context with timeout for testing
func CreateTestContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// FixedClock returns a func reporting t, for injecting into clocks
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
