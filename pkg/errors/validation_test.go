package errors

import (
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid http", "http://127.0.0.1:8080", false},
		{"valid https", "https://controller.lab", false},
		{"valid with path", "http://10.0.0.1:8080/floodlight", false},

		{"empty", "", true},
		{"no scheme", "127.0.0.1:8080", true},
		{"ftp scheme", "ftp://host", true},
		{"no host", "http://", true},
		{"query", "http://host?x=1", true},
		{"fragment", "http://host#top", true},
		{"control char", "http://ho\x01st", true},
		{"newline", "http://host\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidURL) {
				t.Errorf("ValidateURL(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidURL)
			}
		})
	}
}

func TestValidateInterval(t *testing.T) {
	tests := []struct {
		name    string
		input   int
		wantErr bool
	}{
		{"default", 5000, false},
		{"minimum", MinIntervalMS, false},
		{"maximum", MaxIntervalMS, false},
		{"zero", 0, true},
		{"negative", -1, true},
		{"too small", MinIntervalMS - 1, true},
		{"too large", MaxIntervalMS + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInterval(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateInterval(%d) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"http://x", "http://x"},
		{"http://x/", "http://x"},
		{"  http://x//  ", "http://x"},
	}

	for _, tt := range tests {
		if got := NormalizeURL(tt.input); got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
