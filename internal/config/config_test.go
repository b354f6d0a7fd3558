package config

import (
	"testing"
	"time"
)

func TestLoad_RequiresDSN(t *testing.T) {
	t.Setenv("DB_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DB_DSN is unset")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/mileage")
	t.Setenv("PORT", "")
	t.Setenv("COUNTRY_FILTER", "")
	t.Setenv("SUGGEST_WINDOW", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Port)
	}
	if cfg.CountryFilter != "US" {
		t.Errorf("country filter = %q, want US", cfg.CountryFilter)
	}
	if cfg.SuggestWindow != 150*time.Millisecond {
		t.Errorf("suggest window = %v, want 150ms", cfg.SuggestWindow)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	cases := []struct {
		name string
		port string
	}{
		{name: "non_numeric", port: "eighty"},
		{name: "zero", port: "0"},
		{name: "too_large", port: "70000"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("DB_DSN", "postgres://localhost/mileage")
			t.Setenv("PORT", tc.port)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error for PORT=%q", tc.port)
			}
		})
	}
}

func TestLoad_CustomWindow(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/mileage")
	t.Setenv("SUGGEST_WINDOW", "300ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SuggestWindow != 300*time.Millisecond {
		t.Errorf("suggest window = %v, want 300ms", cfg.SuggestWindow)
	}
}

func TestValidate(t *testing.T) {
	good := &Config{DBDSN: "postgres://x", Port: 8080, SuggestWindow: time.Millisecond}
	if err := good.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := &Config{DBDSN: "", Port: 0, SuggestWindow: 0}
	if err := bad.Validate(); err == nil {
		t.Error("expected validation errors")
	}
}
