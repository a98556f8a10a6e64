package config

import (
	"os"
	"testing"
)

// unsetForTest removes key for the duration of the test. Call t.Setenv on
// the same key first so the original value is restored on cleanup.
func unsetForTest(t *testing.T, key string) {
	t.Helper()
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unsetenv %s: %v", key, err)
	}
}
