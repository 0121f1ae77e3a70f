package keychain

import (
	"testing"

	"github.com/99designs/keyring"
)

func TestManagerRoundTrip(t *testing.T) {
	m := NewWithKeyring(keyring.NewArrayKeyring(nil))

	if got, err := m.LoadToken(); err != nil || got != "" {
		t.Fatalf("LoadToken() on empty ring = %q, %v; want \"\", nil", got, err)
	}
	if err := m.SaveToken("tok"); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}
	if err := m.SaveImportDSN("postgresql://u:p@db:5432/app"); err != nil {
		t.Fatalf("SaveImportDSN() error = %v", err)
	}
	if got, _ := m.LoadToken(); got != "tok" {
		t.Errorf("LoadToken() = %q, want tok", got)
	}

	if err := m.ClearToken(); err != nil {
		t.Fatalf("ClearToken() error = %v", err)
	}
	if err := m.ClearToken(); err != nil {
		t.Errorf("second ClearToken() error = %v, want nil", err)
	}
	if got, _ := m.LoadImportDSN(); got == "" {
		t.Error("ClearToken() also removed the import DSN")
	}

	if err := m.ClearAll(); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}
	if got, _ := m.LoadImportDSN(); got != "" {
		t.Errorf("LoadImportDSN() after ClearAll = %q", got)
	}
}

func TestSetEmptyDeletes(t *testing.T) {
	m := NewWithKeyring(keyring.NewArrayKeyring(nil))
	if err := m.Set("k", "v"); err != nil {
		t.Fatal(err)
	}
	if err := m.Set("k", ""); err != nil {
		t.Fatalf("Set(k, \"\") error = %v", err)
	}
	if got, _ := m.Get("k"); got != "" {
		t.Errorf("Get(k) = %q, want empty", got)
	}
}
