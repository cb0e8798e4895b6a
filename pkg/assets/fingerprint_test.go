package assets

import "testing"

func TestContentHash(t *testing.T) {
	a := ContentHash([]byte("console.log(1)"))
	if len(a) != 16 || !isHex(a) {
		t.Fatalf("ContentHash = %q", a)
	}
	if ContentHash([]byte("console.log(1)")) != a {
		t.Error("ContentHash is not stable")
	}
	if ContentHash([]byte("console.log(2)")) == a {
		t.Error("different contents share a hash")
	}
}

func TestFingerprint(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"pages/4f6c2a9e1b0d3c57.js", "pages/4f6c2a9e1b0d3c57.9a0b1c2d3e4f5a6b.js"},
		{"lit/hydration.js", "lit/hydration.9a0b1c2d3e4f5a6b.js"},
		{"robots", "robots.9a0b1c2d3e4f5a6b"},
	}
	for _, tt := range tests {
		got := Fingerprint(tt.name, "9a0b1c2d3e4f5a6b")
		if got != tt.want {
			t.Errorf("Fingerprint(%q) = %q, want %q", tt.name, got, tt.want)
		}
		if !IsFingerprinted(got) {
			t.Errorf("IsFingerprinted(%q) = false", got)
		}
	}
}

func TestIsFingerprinted(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"js/pages/4f6c2a9e1b0d3c57.9a0b1c2d3e4f5a6b.js", true},
		{"js/pages/4f6c2a9e1b0d3c57.9a0b1c2d3e4f5a6b.js.map", true},
		{"app.a1b2c3d4.css", true},
		{"js/pages/4f6c2a9e1b0d3c57.js", false},
		{"js/pages/4f6c2a9e1b0d3c57.js.map", false},
		{"js/lit/hydration.js", false},
		{"app.abc.css", false},
		{"robots.txt", false},
		{"deadbeefcafe", false},
	}
	for _, tt := range tests {
		if got := IsFingerprinted(tt.name); got != tt.want {
			t.Errorf("IsFingerprinted(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
