// Package i18n holds the immutable translation tables and the active-language
// store of the client.
package i18n

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Supported language codes.
const (
	Hungarian = "hu"
	English   = "en"

	Default = Hungarian
)

// StorageKey is the local store key of the preferred language.
const StorageKey = "language"

var ErrUnsupportedLanguage = errors.New("unsupported language")

// Table is the string table of one language. It is never mutated after
// package initialization.
type Table struct {
	lang     string
	messages map[string]string
}

var tables = map[string]*Table{
	Hungarian: {lang: Hungarian, messages: hungarian},
	English:   {lang: English, messages: english},
}

// Language returns the code of the table.
func (t *Table) Language() string {
	return t.lang
}

// T returns the message for key, or the key itself when the table lacks it.
func (t *Table) T(key string) string {
	if msg, ok := t.messages[key]; ok {
		return msg
	}
	return key
}

// Tf formats the message for key with args.
func (t *Table) Tf(key string, args ...any) string {
	return fmt.Sprintf(t.T(key), args...)
}

// Supported reports whether code names a translation table.
func Supported(code string) bool {
	_, ok := tables[code]
	return ok
}

// Lookup returns the table for code, falling back to the default language.
// Codes such as "en-US" or "EN" resolve to their base language.
func Lookup(code string) *Table {
	if t, ok := tables[normalize(code)]; ok {
		return t
	}
	return tables[Default]
}

// FromAcceptLanguage picks the first supported language of an
// Accept-Language header, or "" when none matches.
func FromAcceptLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag, _, _ := strings.Cut(part, ";")
		if code := normalize(tag); Supported(code) {
			return code
		}
	}
	return ""
}

func normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	base, _, _ := strings.Cut(code, "-")
	return base
}

// Storage is the durable key/value store the Localizer persists to.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Localizer is the process-wide active-language store. Switching language
// swaps the table reference; tables themselves never change.
type Localizer struct {
	store Storage

	mu    sync.RWMutex
	table *Table
}

// NewLocalizer restores the persisted language from store, defaulting to
// Hungarian when nothing (or something unsupported) was saved.
func NewLocalizer(store Storage) *Localizer {
	l := &Localizer{store: store, table: tables[Default]}
	if store == nil {
		return l
	}
	if code, ok, err := store.Get(StorageKey); err == nil && ok && Supported(code) {
		l.table = tables[code]
	}
	return l
}

// Table returns the active string table.
func (l *Localizer) Table() *Table {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.table
}

// Language returns the active language code.
func (l *Localizer) Language() string {
	return l.Table().Language()
}

// SetLanguage activates code and persists it.
func (l *Localizer) SetLanguage(code string) error {
	t, ok := tables[code]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, code)
	}

	l.mu.Lock()
	l.table = t
	l.mu.Unlock()

	if l.store != nil {
		if err := l.store.Set(StorageKey, code); err != nil {
			return fmt.Errorf("persist language: %w", err)
		}
	}
	return nil
}
