package testutil

import (
	"os"
	"testing"
)

// RequireTestEnvironment fails the test unless GO_ENV=test. The suites run
// migrations and truncating setup against whatever database is configured,
// so this guard keeps them off development and production data.
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	if env := os.Getenv("GO_ENV"); env != "test" {
		t.Fatalf("refusing to run outside the test environment (GO_ENV=%q); set GO_ENV=test", env)
	}
}

// RequireTestEnvironmentOrSkip skips instead of failing. For optional suites.
func RequireTestEnvironmentOrSkip(t *testing.T) {
	t.Helper()

	if env := os.Getenv("GO_ENV"); env != "test" {
		t.Skipf("skipping: GO_ENV must be test (current %q)", env)
	}
}
