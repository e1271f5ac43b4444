package resilience

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
	"testing"
)

func TestStatusError_Message(t *testing.T) {
	err := &StatusError{URL: "https://example.com/api", StatusCode: 429}
	if got := err.Error(); got != "http 429 from https://example.com/api" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestExhaustedError_Message(t *testing.T) {
	err := &ExhaustedError{Attempts: []Attempt{
		{Candidate: "a", Err: errors.New("timeout")},
		{Candidate: "b", Err: errors.New("bad json")},
	}}
	msg := err.Error()
	if !strings.Contains(msg, "all 2 candidates failed") {
		t.Errorf("missing summary in %q", msg)
	}
	if !strings.Contains(msg, "a: timeout") || !strings.Contains(msg, "b: bad json") {
		t.Errorf("missing attempt detail in %q", msg)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"status 503", &StatusError{StatusCode: 503}, true},
		{"status 429", &StatusError{StatusCode: 429}, true},
		{"status 400", &StatusError{StatusCode: 400}, false},
		{"wrapped status", fmt.Errorf("probe: %w", &StatusError{StatusCode: 504}), true},
		{"conn reset", syscall.ECONNRESET, true},
		{"conn refused text", errors.New("dial tcp 127.0.0.1:1: connect: connection refused"), true},
		{"no such host", errors.New("dial tcp: lookup overpass.invalid: no such host"), true},
		{"decode error", errors.New("invalid character '<' looking for beginning of value"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("expected %d to be transient", code)
		}
	}
	for _, code := range []int{200, 400, 401, 403, 404} {
		if IsTransientHTTPStatus(code) {
			t.Errorf("expected %d to not be transient", code)
		}
	}
}
