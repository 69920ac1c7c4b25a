package logging

import (
	"errors"
	"testing"
)

func TestSanitizeHost(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "<empty>",
		},
		{
			name:     "hostname URL unchanged",
			input:    "https://api.example.com:8080/openapi.json",
			expected: "https://api.example.com:8080/openapi.json",
		},
		{
			name:     "IPv4 URL redacted",
			input:    "https://192.168.1.100:8080",
			expected: "https://<redacted-ip>:8080",
		},
		{
			name:     "bare IPv4 redacted",
			input:    "10.0.0.1",
			expected: "<redacted-ip>",
		},
		{
			name:     "IPv6 URL redacted",
			input:    "https://[2001:db8::1]:8080",
			expected: "https://<redacted-ip>:8080",
		},
		{
			name:     "bare IPv6 redacted",
			input:    "2001:db8::1",
			expected: "<redacted-ip>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeHost(tt.input); got != tt.expected {
				t.Errorf("SanitizeHost(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSanitizeCookies(t *testing.T) {
	if got := SanitizeCookies(""); got != "<empty>" {
		t.Errorf("SanitizeCookies(\"\") = %q, want <empty>", got)
	}
	if got := SanitizeCookies("session=abc123"); got != "[cookies:14 chars]" {
		t.Errorf("SanitizeCookies(session=abc123) = %q, want [cookies:14 chars]", got)
	}
}

func TestErr(t *testing.T) {
	attr := Err(nil)
	if attr.Value.String() != "" {
		t.Errorf("Err(nil) value = %q, want empty", attr.Value.String())
	}

	attr = Err(errors.New("boom"))
	if attr.Value.String() != "boom" {
		t.Errorf("Err value = %q, want boom", attr.Value.String())
	}
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
}
