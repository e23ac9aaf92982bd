package logger

import "testing"

func TestNewDefaultsToInfoLevel(t *testing.T) {
	log := New(Config{})
	if log.GetLevel().String() != "info" {
		t.Fatalf("expected info level, got %s", log.GetLevel())
	}
}

func TestNewParsesExplicitLevel(t *testing.T) {
	log := New(Config{Level: "debug"})
	if log.GetLevel().String() != "debug" {
		t.Fatalf("expected debug level, got %s", log.GetLevel())
	}
}

func TestTenantAddsField(t *testing.T) {
	log := New(Config{})
	entry := log.Tenant("a.local")
	if entry.Data["tenant"] != "a.local" {
		t.Fatalf("expected tenant field set, got %#v", entry.Data)
	}
}
