package datasets

import (
	"path/filepath"
	"testing"
)

func TestLoadVocabulary_RoundTrip(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "vocab.txt")
	writeFile(t, path, []string{"a", "b", "UNKNOWN"})

	v, err := LoadVocabulary(path)
	if err != nil {
		t.Fatalf("LoadVocabulary failed: %v", err)
	}
	if got := v.Len(); got != 3 {
		t.Fatalf("expected vocab size 3, got %d", got)
	}
	want := map[string]int{"a": 0, "b": 1, "UNKNOWN": 2}
	for token, idx := range want {
		if got := v.Index(token); got != idx {
			t.Fatalf("Index(%q) = %d, want %d", token, got, idx)
		}
	}
	if got := v.UnknownIndex(); got != 2 {
		t.Fatalf("UnknownIndex() = %d, want 2", got)
	}
}

func TestVocabulary_UnknownNeverFails(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "vocab.txt")
	writeFile(t, path, []string{"a", "b", "UNKNOWN"})

	v, err := LoadVocabulary(path)
	if err != nil {
		t.Fatalf("LoadVocabulary failed: %v", err)
	}
	for _, token := range []string{"zzz", "\\frac", ""} {
		if got := v.Index(token); got != v.UnknownIndex() {
			t.Fatalf("Index(%q) = %d, want UNKNOWN index %d", token, got, v.UnknownIndex())
		}
	}
	if v.Contains("zzz") {
		t.Fatalf("Contains(zzz) = true, want false")
	}
}

func TestLoadVocabulary_TrimsWhitespace(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "vocab.txt")
	writeFile(t, path, []string{"a  ", "\tb", "UNKNOWN \r"})

	v, err := LoadVocabulary(path)
	if err != nil {
		t.Fatalf("LoadVocabulary failed: %v", err)
	}
	if v.Index("a") != 0 || v.Index("b") != 1 || v.Index("UNKNOWN") != 2 {
		t.Fatalf("tokens not trimmed before indexing")
	}
}

func TestLoadVocabulary_MissingUnknown(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "vocab.txt")
	writeFile(t, path, []string{"a", "b"})

	if _, err := LoadVocabulary(path); err == nil {
		t.Fatalf("expected error for vocabulary without UNKNOWN, got nil")
	}
}

func TestVocabulary_TokenReverseLookup(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "vocab.txt")
	writeFile(t, path, []string{"a", "b", "UNKNOWN"})

	v, err := LoadVocabulary(path)
	if err != nil {
		t.Fatalf("LoadVocabulary failed: %v", err)
	}
	token, err := v.Token(1)
	if err != nil {
		t.Fatalf("Token(1) error: %v", err)
	}
	if token != "b" {
		t.Fatalf("Token(1) = %q, want %q", token, "b")
	}
	if _, err := v.Token(3); err == nil {
		t.Fatalf("expected error for out-of-range token index, got nil")
	}
}
