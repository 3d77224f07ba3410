package poker

import (
	"strings"
	"testing"
)

func TestNewRoomCodeAlphabet(t *testing.T) {
	for i := 0; i < 5000; i++ {
		code := NewRoomCode()
		if len(code) != CodeLength {
			t.Fatalf("expected %d characters, got %q", CodeLength, code)
		}
		for _, r := range code {
			if !strings.ContainsRune(CodeAlphabet, r) {
				t.Fatalf("code %q contains %q outside the alphabet", code, r)
			}
		}
	}
}

func TestCodeAlphabetExcludesConfusables(t *testing.T) {
	for _, r := range "0O1I" {
		if strings.ContainsRune(CodeAlphabet, r) {
			t.Fatalf("alphabet must not contain %q", r)
		}
	}
}

func TestNewParticipantIDIncreasing(t *testing.T) {
	seen := make(map[string]struct{})
	prev := ""
	for i := 0; i < 1000; i++ {
		id := NewParticipantID()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
		if prev != "" && (len(id) < len(prev) || (len(id) == len(prev) && id <= prev)) {
			t.Fatalf("expected %s to sort after %s", id, prev)
		}
		prev = id
	}
}

func TestNormalizeCode(t *testing.T) {
	if got := NormalizeCode("  abc234 "); got != "ABC234" {
		t.Fatalf("expected ABC234, got %q", got)
	}
}
