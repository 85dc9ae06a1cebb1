package util

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestJWT_RoundTrip(t *testing.T) {
	token, err := GenerateJWT("u-1", "homeowner", "secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ParseJWT(token, "secret")
	if err != nil {
		t.Fatalf("ParseJWT() error = %v", err)
	}
	if claims.Subject != "u-1" || claims.Role != "homeowner" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestJWT_Rejects(t *testing.T) {
	token, _ := GenerateJWT("u-1", "contractor", "secret", time.Hour)
	if _, err := ParseJWT(token, "other"); err == nil {
		t.Error("wrong secret accepted")
	}
	expired, _ := GenerateJWT("u-1", "contractor", "secret", -time.Minute)
	if _, err := ParseJWT(expired, "secret"); err == nil {
		t.Error("expired token accepted")
	}
	noSub, _ := GenerateJWT("", "contractor", "secret", time.Hour)
	if _, err := ParseJWT(noSub, "secret"); err == nil {
		t.Error("token without subject accepted")
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		if got := ExtractToken(r); got != tt.want {
			t.Errorf("ExtractToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
