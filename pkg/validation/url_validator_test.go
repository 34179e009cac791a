package validation

import (
	"errors"
	"testing"

	apperrors "go-disaster-id-scan/internal/errors"
)

func TestNewURLValidator(t *testing.T) {
	validator := NewURLValidator()
	if validator == nil {
		t.Fatal("Expected non-nil URL validator")
	}

	expectedSchemes := []string{"http", "https"}
	if len(validator.allowedSchemes) != len(expectedSchemes) {
		t.Errorf("Expected %d schemes, got %d", len(expectedSchemes), len(validator.allowedSchemes))
	}
	for i, scheme := range expectedSchemes {
		if validator.allowedSchemes[i] != scheme {
			t.Errorf("Expected scheme %s, got %s", scheme, validator.allowedSchemes[i])
		}
	}
}

func TestValidateFrameURL_ValidURLs(t *testing.T) {
	validator := NewURLValidator()

	validURLs := []string{
		"http://example.com/frame.jpg",
		"https://example.com/frame.png",
		"http://192.168.1.1:8080/capture",
		"https://acct.blob.core.windows.net/frames/cam1.png",
	}

	for _, url := range validURLs {
		if err := validator.ValidateFrameURL(url); err != nil {
			t.Errorf("Expected valid URL %s to pass validation, got error: %v", url, err)
		}
	}
}

func TestValidateFrameURL_Invalid(t *testing.T) {
	validator := NewURLValidator()

	tests := []struct {
		url     string
		message string
	}{
		{"", "URL cannot be empty"},
		{"   ", "URL cannot be empty"},
		{"ftp://example.com/frame.jpg", "URL scheme not allowed"},
		{"file://local/path/frame.jpg", "URL scheme not allowed"},
		{"not-a-url", "URL scheme not allowed"},
		{"http://", "URL must have a valid host"},
		{"http:///path", "URL must have a valid host"},
		{"://missing-scheme", "Invalid URL format"},
		{"http://169.254.169.254/latest/meta-data", "URL host not allowed"},
		{"http://[fe80::1]/frame.jpg", "URL host not allowed"},
		{"http://0.0.0.0/frame.jpg", "URL host not allowed"},
	}

	for _, tt := range tests {
		err := validator.ValidateFrameURL(tt.url)
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			t.Errorf("Expected AppError for %q, got: %T", tt.url, err)
			continue
		}
		if appErr.Type != apperrors.ErrorTypeValidation {
			t.Errorf("Expected validation error for %q, got %s", tt.url, appErr.Type)
		}
		if appErr.Message != tt.message {
			t.Errorf("Expected %q for %q, got: %s", tt.message, tt.url, appErr.Message)
		}
	}
}

func TestValidateFrameURL_RestrictedHosts(t *testing.T) {
	validator := NewURLValidatorWithOptions([]string{"https"}, []string{"capture.local", ".blob.core.windows.net"})

	allowedURLs := []string{
		"https://capture.local/frame.jpg",
		"https://capture.local:8443/frame.jpg",
		"https://acct.blob.core.windows.net/frames/a.png",
	}
	for _, url := range allowedURLs {
		if err := validator.ValidateFrameURL(url); err != nil {
			t.Errorf("Expected allowed host URL '%s' to pass validation, got error: %v", url, err)
		}
	}

	disallowedURLs := []string{
		"https://malicious.com/frame.jpg",
		"https://blob.core.windows.net.evil.com/a.png",
		"http://capture.local/frame.jpg",
	}
	for _, url := range disallowedURLs {
		if err := validator.ValidateFrameURL(url); err == nil {
			t.Errorf("Expected URL '%s' to fail validation", url)
		}
	}
}

func TestValidateRegistrantID(t *testing.T) {
	if err := ValidateRegistrantID("6ba7b810-9dad-11d1-80b4-00c04fd430c8"); err != nil {
		t.Errorf("Expected valid UUID to pass, got %v", err)
	}
	for _, id := range []string{"", "42", "../etc/passwd"} {
		if err := ValidateRegistrantID(id); !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			t.Errorf("Expected validation error for %q, got %v", id, err)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		value   string
		want    string
		wantNil bool
		wantErr bool
	}{
		{value: "1988-03-21", want: "1988-03-21"},
		{value: "21.03.1988", want: "1988-03-21"},
		{value: " 14.10.2026 ", want: "2026-10-14"},
		{value: "", wantNil: true},
		{value: "31.04.2020", wantErr: true},
		{value: "03/21/1988", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseDate("date_of_birth", tt.value)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Expected error for %q", tt.value)
			}
			continue
		}
		if err != nil {
			t.Errorf("Unexpected error for %q: %v", tt.value, err)
			continue
		}
		if tt.wantNil {
			if got != nil {
				t.Errorf("Expected nil for %q, got %v", tt.value, got)
			}
			continue
		}
		if got == nil || got.Format("2006-01-02") != tt.want {
			t.Errorf("Expected %s for %q, got %v", tt.want, tt.value, got)
		}
	}
}
