package localstore

import (
	"path/filepath"
	"testing"
)

func TestStore_SetGetDelete(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, ok, err := s.Get("language"); err != nil || ok {
		t.Fatalf("Get on empty store: ok=%v err=%v", ok, err)
	}

	if err := s.Set("language", "en"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set("language", "hu"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}

	v, ok, err := s.Get("language")
	if err != nil || !ok || v != "hu" {
		t.Fatalf("Get = %q, %v, %v; want hu, true, nil", v, ok, err)
	}

	if err := s.Delete("language"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete("language"); err != nil {
		t.Fatalf("Delete missing key: %v", err)
	}
	if _, ok, _ := s.Get("language"); ok {
		t.Error("key should be gone")
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Set("remember_me", "false"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "remember_me" {
		t.Errorf("keys = %v, want [remember_me]", keys)
	}
}
