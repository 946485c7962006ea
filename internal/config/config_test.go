package config

import (
	"reflect"
	"testing"
	"time"
)

func TestParseAdminIDs(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want []string
	}{
		{"comma separated", "111,222,333", []string{"111", "222", "333"}},
		{"whitespace separated", "111 222\n333", []string{"111", "222", "333"}},
		{"mixed separators", "111, 222,\n 333", []string{"111", "222", "333"}},
		{"non-numeric entries skipped", "111,abc,222", []string{"111", "222"}},
		{"empty input", "", nil},
		{"only separators", " , ,\n", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseAdminIDs(tc.raw)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestGetEnvDefaults(t *testing.T) {
	if got := getEnv("DRIVE_ACCESS_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("Expected fallback, got %q", got)
	}

	t.Setenv("DRIVE_ACCESS_TEST_STR", "value")
	if got := getEnv("DRIVE_ACCESS_TEST_STR", "fallback"); got != "value" {
		t.Errorf("Expected value, got %q", got)
	}

	t.Setenv("DRIVE_ACCESS_TEST_INT", "42")
	if got := getEnvAsInt("DRIVE_ACCESS_TEST_INT", 7); got != 42 {
		t.Errorf("Expected 42, got %d", got)
	}

	t.Setenv("DRIVE_ACCESS_TEST_BAD_INT", "nope")
	if got := getEnvAsInt("DRIVE_ACCESS_TEST_BAD_INT", 7); got != 7 {
		t.Errorf("Expected default 7 on bad value, got %d", got)
	}

	t.Setenv("DRIVE_ACCESS_TEST_DUR", "90s")
	if got := getEnvAsDuration("DRIVE_ACCESS_TEST_DUR", time.Minute); got != 90*time.Second {
		t.Errorf("Expected 90s, got %s", got)
	}

	t.Setenv("DRIVE_ACCESS_TEST_BAD_DUR", "soon")
	if got := getEnvAsDuration("DRIVE_ACCESS_TEST_BAD_DUR", time.Minute); got != time.Minute {
		t.Errorf("Expected default 1m on bad value, got %s", got)
	}
}
