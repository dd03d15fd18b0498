package demo_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/tether/internal/demo"
)

func TestSanitizeInput_SizeLimit(t *testing.T) {
	limit := demo.DefaultMaxInputSize

	tests := []struct {
		name      string
		inputSize int
		wantErr   bool
	}{
		{"Under Limit", limit - 1, false},
		{"Exact Limit", limit, false},
		{"Over Limit", limit + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := demo.SanitizeInput(strings.Repeat("a", tt.inputSize))
			if tt.wantErr != (err != nil) {
				t.Errorf("SanitizeInput() size %d: wantErr=%v, got %v", tt.inputSize, tt.wantErr, err)
			}
		})
	}
}

func TestSanitizeInput_EnvOverride(t *testing.T) {
	t.Setenv(demo.EnvMaxInputSize, "8")

	if _, err := demo.SanitizeInput("set 1234"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if _, err := demo.SanitizeInput("set 12345"); !errors.Is(err, demo.ErrInputTooLarge) {
		t.Errorf("Expected ErrInputTooLarge, got %v", err)
	}
}

func TestSanitizeInput_ControlChars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Normal Text", "set Hello World", "set Hello World"},
		{"Safe Controls", "Line1\nLine2\tTabbed", "Line1\nLine2\tTabbed"},
		{"ANSI Code", "\x1b[31mRed\x1b[0m", "[31mRed[0m"},
		{"Null Byte", "Null\x00Byte", "NullByte"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := demo.SanitizeInput(tt.input)
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSanitizeInput_InvalidUTF8(t *testing.T) {
	if _, err := demo.SanitizeInput("set \xff\xfe"); !errors.Is(err, demo.ErrInvalidUTF8) {
		t.Errorf("Expected ErrInvalidUTF8, got %v", err)
	}
}

func TestParse_StripsEscapes(t *testing.T) {
	cmd, err := demo.Parse("set \x1b[2Jfoo")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cmd.Arg != "[2Jfoo" {
		t.Errorf("Expected escape stripped, got %q", cmd.Arg)
	}
}
