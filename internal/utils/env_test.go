package utils

import "testing"

func TestSafeEnv(t *testing.T) {
	t.Setenv("RHEUMABOT_TEST_KEY", "value")
	if got := SafeEnv("RHEUMABOT_TEST_KEY", "fb"); got != "value" {
		t.Fatalf("SafeEnv = %q", got)
	}
	if got := SafeEnv("RHEUMABOT_TEST_ABSENT", "fb"); got != "fb" {
		t.Fatalf("SafeEnv fallback = %q", got)
	}
}

func TestSafeEnvInt(t *testing.T) {
	t.Setenv("RHEUMABOT_TEST_INT", "42")
	if got := SafeEnvInt("RHEUMABOT_TEST_INT", 7); got != 42 {
		t.Fatalf("SafeEnvInt = %d", got)
	}
	t.Setenv("RHEUMABOT_TEST_INT", "junk")
	if got := SafeEnvInt("RHEUMABOT_TEST_INT", 7); got != 7 {
		t.Fatalf("SafeEnvInt junk = %d", got)
	}
	if got := SafeEnvInt("RHEUMABOT_TEST_ABSENT", 7); got != 7 {
		t.Fatalf("SafeEnvInt fallback = %d", got)
	}
}
