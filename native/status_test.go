package native

import (
	"errors"
	"strings"
	"testing"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		code int
		want Status
	}{
		{"no error", 0, StatusNoError},
		{"unattached thread", 4, StatusUnattachedThread},
		{"reserve address space", 801, StatusReserveAddressSpaceFailed},
		{"gap in numbering", 3, StatusUnknown},
		{"out of range", 9999, StatusUnknown},
		{"negative", -7, StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.code); got != tt.want {
				t.Errorf("StatusOf(%d) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestStatusErr(t *testing.T) {
	if err := StatusNoError.Err(); err != nil {
		t.Errorf("NO_ERROR.Err() = %v, want nil", err)
	}

	err := StatusUninitializedIsolate.Err()
	if err == nil {
		t.Fatal("expected error for UNINITIALIZED_ISOLATE")
	}

	var st Status
	if !errors.As(err, &st) || st != StatusUninitializedIsolate {
		t.Errorf("errors.As recovered %v, want UNINITIALIZED_ISOLATE", st)
	}
	if !strings.Contains(err.Error(), "The specified isolate is unknown.") {
		t.Errorf("error text missing description: %q", err.Error())
	}
}

func TestStatusNames(t *testing.T) {
	for st, info := range statuses {
		if st.Name() != info.name {
			t.Errorf("Name() = %q, want %q", st.Name(), info.name)
		}
		if st.Description() == "" {
			t.Errorf("%s has no description", st.Name())
		}
	}

	if Status(3).Name() != "UNKNOWN" {
		t.Errorf("unlisted status should be named UNKNOWN, got %q", Status(3).Name())
	}
}
