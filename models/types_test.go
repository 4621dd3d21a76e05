package models

import (
	"strings"
	"testing"
)

func TestKeyBuildersCarryOwnerPrefix(t *testing.T) {
	keys := []string{
		MessageKey("alice", "m1"),
		ThreadKey("alice", "t1"),
		SummaryKey("alice", "m1"),
		PageKey("alice", "in:inbox", 3),
		HistoryKey("alice"),
	}

	for _, k := range keys {
		if !strings.HasPrefix(k, "alice:") {
			t.Errorf("key %q missing owner prefix", k)
		}
	}
}

func TestSameResourceDifferentOwnersDistinctKeys(t *testing.T) {
	if MessageKey("alice", "m1") == MessageKey("bob", "m1") {
		t.Error("expected distinct keys for distinct owners")
	}
	if PageKey("alice", "q", 1) == PageKey("bob", "q", 1) {
		t.Error("expected distinct page keys for distinct owners")
	}
}

func TestKeyKindsDoNotCollide(t *testing.T) {
	// The same id under different namespaces must map to different keys.
	if MessageKey("a", "x") == SummaryKey("a", "x") {
		t.Error("message and summary keys collide")
	}
	if MessageKey("a", "x") == ThreadKey("a", "x") {
		t.Error("message and thread keys collide")
	}
}
