package fingerprint

import "testing"

func TestDocIDIsStableAcrossPathSpellings(t *testing.T) {
	a := DocID("laws/labor__Labor Law.pdf")
	b := DocID("./laws//labor__Labor Law.pdf")
	if a != b {
		t.Fatalf("expected equal ids, got %s and %s", a, b)
	}
	if a != DocID("laws/labor__Labor Law.pdf") {
		t.Fatalf("expected deterministic id")
	}
}

func TestDocIDDiffersPerPath(t *testing.T) {
	seen := make(map[string]string)
	for _, p := range []string{"a.txt", "b.txt", "dir/a.txt", "A.txt"} {
		id := DocID(p)
		if prev, ok := seen[id]; ok {
			t.Fatalf("collision between %s and %s", prev, p)
		}
		seen[id] = p
	}
}

func TestContentHash(t *testing.T) {
	h := ContentHash("article 5")
	if len(h) != 16 {
		t.Fatalf("expected 16 hex chars, got %q", h)
	}
	if h != ContentHash("article 5") {
		t.Fatalf("expected deterministic hash")
	}
	if h == ContentHash("article 6") {
		t.Fatalf("expected distinct hashes for distinct inputs")
	}
}
