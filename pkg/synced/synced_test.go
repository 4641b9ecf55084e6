package synced

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenFileSetMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "synced.txt")

	s, err := OpenFileSet(path)
	if err != nil {
		t.Fatalf("OpenFileSet failed: %v", err)
	}
	defer s.Close()

	if s.Len() != 0 {
		t.Errorf("Expected empty set, got %d ids", s.Len())
	}
	if s.Contains("abc123") {
		t.Error("Expected empty set not to contain abc123")
	}
}

func TestFileSetSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synced.txt")

	s, err := OpenFileSet(path)
	if err != nil {
		t.Fatalf("OpenFileSet failed: %v", err)
	}
	for _, id := range []string{"c1", "c2", "c1"} {
		if err := s.Insert(id); err != nil {
			t.Fatalf("Insert(%s) failed: %v", id, err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "c1\nc2\n" {
		t.Errorf("Expected one id per line without duplicates, got %q", string(data))
	}

	reopened, err := OpenFileSet(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	if !reopened.Contains("c1") || !reopened.Contains("c2") {
		t.Error("Expected reopened set to contain c1 and c2")
	}
	if reopened.Contains("c3") {
		t.Error("Expected reopened set not to contain c3")
	}
}

func TestOpenFileSetToleratesBlankLinesAndWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synced.txt")
	if err := os.WriteFile(path, []byte("\n  abc123  \n\ndef456\n"), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := OpenFileSet(path)
	if err != nil {
		t.Fatalf("OpenFileSet failed: %v", err)
	}
	defer s.Close()

	if s.Len() != 2 {
		t.Errorf("Expected 2 ids, got %d", s.Len())
	}
	if !s.Contains("abc123") {
		t.Error("Expected trimmed id abc123 to be present")
	}
}

func TestFileSetAppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synced.txt")
	if err := os.WriteFile(path, []byte("old\n"), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := OpenFileSet(path)
	if err != nil {
		t.Fatalf("OpenFileSet failed: %v", err)
	}
	if err := s.Insert("new"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	s.Close()

	data, _ := os.ReadFile(path)
	if got := strings.Fields(string(data)); len(got) != 2 || got[0] != "old" || got[1] != "new" {
		t.Errorf("Expected [old new], got %v", got)
	}
}

func TestInsertRejectsEmptyID(t *testing.T) {
	sets := map[string]Set{
		"memory": NewMemorySet(),
	}
	fileSet, err := OpenFileSet(filepath.Join(t.TempDir(), "synced.txt"))
	if err != nil {
		t.Fatal(err)
	}
	defer fileSet.Close()
	sets["file"] = fileSet

	for name, s := range sets {
		if err := s.Insert(""); err == nil {
			t.Errorf("%s: expected error for empty id", name)
		}
	}
}

func TestMemorySet(t *testing.T) {
	m := NewMemorySet("abc123")
	if !m.Contains("abc123") {
		t.Error("Expected seeded id to be present")
	}
	if err := m.Insert("def456"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if m.Len() != 2 {
		t.Errorf("Expected 2 ids, got %d", m.Len())
	}
}

func TestFileSetAppendsAfterTornLastLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synced.txt")
	if err := os.WriteFile(path, []byte("aaa\nbbb"), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := OpenFileSet(path)
	if err != nil {
		t.Fatalf("OpenFileSet failed: %v", err)
	}
	for _, id := range []string{"ccc", "ddd"} {
		if err := s.Insert(id); err != nil {
			t.Fatalf("Insert(%s) failed: %v", id, err)
		}
	}
	s.Close()

	data, _ := os.ReadFile(path)
	if string(data) != "aaa\nbbb\nccc\nddd\n" {
		t.Errorf("Expected every id on its own line, got %q", string(data))
	}

	reopened, err := OpenFileSet(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	for _, id := range []string{"aaa", "bbb", "ccc", "ddd"} {
		if !reopened.Contains(id) {
			t.Errorf("Expected reopened set to contain %s", id)
		}
	}
}

func TestSetsNormalizeIDsAlike(t *testing.T) {
	fileSet, err := OpenFileSet(filepath.Join(t.TempDir(), "synced.txt"))
	if err != nil {
		t.Fatal(err)
	}
	defer fileSet.Close()
	sets := map[string]Set{
		"memory": NewMemorySet(),
		"file":   fileSet,
	}

	for name, s := range sets {
		if err := s.Insert(" abc123\t"); err != nil {
			t.Fatalf("%s: Insert failed: %v", name, err)
		}
		if !s.Contains("abc123") || !s.Contains("abc123 ") {
			t.Errorf("%s: expected padded and bare id to match", name)
		}
		if err := s.Insert("   "); err == nil {
			t.Errorf("%s: expected error for blank id", name)
		}
	}
}
