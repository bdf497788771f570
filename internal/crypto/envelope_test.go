package crypto

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestSealOpen(t *testing.T) {
	keys := map[string][]byte{
		"k1": mustKey(t, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="),
	}
	m, err := NewManager("k1", keys)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	raw, err := m.SealString("jane@example.com")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if strings.Contains(raw, "jane") {
		t.Fatalf("sealed value leaks plaintext: %q", raw)
	}

	out, err := m.OpenString(raw)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if out != "jane@example.com" {
		t.Fatalf("expected original string, got %q", out)
	}
}

func TestRotationOpenOldSealNew(t *testing.T) {
	oldKey := mustKey(t, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=")
	newKey := mustKey(t, "AQEBAQEBAQEBAQEBAQEBAQEBAQEBAQEBAQEBAQEBAQE=")

	oldManager, err := NewManager("old", map[string][]byte{"old": oldKey})
	if err != nil {
		t.Fatalf("old manager: %v", err)
	}
	oldSealed, err := oldManager.SealString("07700 900123")
	if err != nil {
		t.Fatalf("old seal: %v", err)
	}

	rotated, err := NewManager("new", map[string][]byte{"old": oldKey, "new": newKey})
	if err != nil {
		t.Fatalf("rotated manager: %v", err)
	}
	plain, err := rotated.OpenString(oldSealed)
	if err != nil {
		t.Fatalf("open with old key failed: %v", err)
	}
	if plain != "07700 900123" {
		t.Fatalf("unexpected plaintext: %q", plain)
	}

	fresh, err := rotated.SealString("fresh")
	if err != nil {
		t.Fatalf("new seal failed: %v", err)
	}
	if !strings.Contains(fresh, `"key_id":"new"`) {
		t.Fatalf("expected new key id in envelope, got %s", fresh)
	}
}

func TestNilManagerPassesThrough(t *testing.T) {
	var m *Manager

	sealed, err := m.SealString("plain")
	if err != nil || sealed != "plain" {
		t.Fatalf("expected passthrough, got %q err=%v", sealed, err)
	}
	opened, err := m.OpenString("plain")
	if err != nil || opened != "plain" {
		t.Fatalf("expected passthrough, got %q err=%v", opened, err)
	}
}

func TestOpenPlaintextWithManager(t *testing.T) {
	m, err := NewManager("k1", map[string][]byte{"k1": mustKey(t, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=")})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	out, err := m.OpenString("legacy@example.com")
	if err != nil {
		t.Fatalf("open legacy: %v", err)
	}
	if out != "legacy@example.com" {
		t.Fatalf("unexpected value %q", out)
	}
}

func mustKey(t *testing.T, b64 string) []byte {
	t.Helper()
	k, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("decode key: %v", err)
	}
	if len(k) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(k))
	}
	return k
}
