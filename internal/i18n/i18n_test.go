package i18n

import (
	"errors"
	"testing"
)

type memStorage struct {
	data   map[string]string
	setErr error
}

func (m *memStorage) Get(key string) (string, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStorage) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func TestTablesHaveSameKeys(t *testing.T) {
	for key := range hungarian {
		if _, ok := english[key]; !ok {
			t.Errorf("english table lacks %q", key)
		}
	}
	for key := range english {
		if _, ok := hungarian[key]; !ok {
			t.Errorf("hungarian table lacks %q", key)
		}
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"en", English},
		{"EN-us", English},
		{"hu", Hungarian},
		{"de", Default},
		{"", Default},
	}
	for _, tt := range tests {
		if got := Lookup(tt.code).Language(); got != tt.want {
			t.Errorf("Lookup(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestFromAcceptLanguage(t *testing.T) {
	if got := FromAcceptLanguage("de-DE,de;q=0.9,en-US;q=0.8"); got != English {
		t.Errorf("got %q, want en", got)
	}
	if got := FromAcceptLanguage("fr"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestTable_MissingKeyFallsBack(t *testing.T) {
	if got := Lookup(English).T("no.such.key"); got != "no.such.key" {
		t.Errorf("T = %q", got)
	}
}

func TestLocalizer_RestoresAndPersists(t *testing.T) {
	store := &memStorage{data: map[string]string{StorageKey: English}}
	l := NewLocalizer(store)
	if l.Language() != English {
		t.Fatalf("restored language = %q, want en", l.Language())
	}

	before := l.Table()
	if err := l.SetLanguage(Hungarian); err != nil {
		t.Fatalf("SetLanguage: %v", err)
	}
	if store.data[StorageKey] != Hungarian {
		t.Errorf("persisted = %q, want hu", store.data[StorageKey])
	}
	if before.Language() != English {
		t.Error("previous table reference must not change")
	}
	if l.Table() == before {
		t.Error("expected table reference to be swapped")
	}
}

func TestLocalizer_RejectsUnknown(t *testing.T) {
	store := &memStorage{data: map[string]string{StorageKey: "xx"}}
	l := NewLocalizer(store)
	if l.Language() != Default {
		t.Errorf("language = %q, want default", l.Language())
	}
	if err := l.SetLanguage("de"); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Errorf("err = %v, want ErrUnsupportedLanguage", err)
	}
	if _, ok := store.data[StorageKey]; ok && store.data[StorageKey] != "xx" {
		t.Error("unsupported language must not be persisted")
	}
}
