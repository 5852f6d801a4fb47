package token

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	tok, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if !strings.HasPrefix(tok, Prefix) {
		t.Fatalf("Generate() = %q, want prefix %q", tok, Prefix)
	}
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(tok, Prefix))
	if err != nil {
		t.Fatalf("Generate() returned invalid base64: %v", err)
	}
	if len(decoded) != DefaultLength {
		t.Errorf("decoded length = %d, want %d", len(decoded), DefaultLength)
	}
	if len(tok) != len(Prefix)+43 {
		t.Errorf("len(token) = %d, want %d", len(tok), len(Prefix)+43)
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := Generate()
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if seen[tok] {
			t.Fatalf("Generate() produced duplicate token: %s", tok)
		}
		seen[tok] = true
	}
}

func TestGenerateWithLength(t *testing.T) {
	for _, n := range []int{16, 32, 64} {
		tok, err := GenerateWithLength(n)
		if err != nil {
			t.Fatalf("GenerateWithLength(%d) error = %v", n, err)
		}
		decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(tok, Prefix))
		if err != nil || len(decoded) != n {
			t.Errorf("GenerateWithLength(%d) decoded %d bytes, err = %v", n, len(decoded), err)
		}
	}
}

func TestHash(t *testing.T) {
	h := Hash("test-token-12345")

	if len(h) != 64 {
		t.Errorf("Hash() length = %d, want 64", len(h))
	}
	if strings.ToLower(h) != h {
		t.Error("Hash() should return lowercase hex")
	}
	if Hash("test-token-12345") != h {
		t.Error("Hash() is not deterministic")
	}
	if Hash("other") == h {
		t.Error("Hash() produced same hash for different inputs")
	}
}

func TestVerify(t *testing.T) {
	h := Hash("my-secret-token")

	if !Verify("my-secret-token", h) {
		t.Error("Verify() returned false for correct token")
	}
	if Verify("wrong-token", h) {
		t.Error("Verify() returned true for wrong token")
	}
	if Verify("my-secret-token", "wrong-hash") {
		t.Error("Verify() returned true for wrong hash")
	}
	if !Verify("", Hash("")) {
		t.Error("Verify() should accept empty token with matching hash")
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name            string
		given, expected string
		want            bool
	}{
		{"same", "secret", "secret", true},
		{"different", "secret", "secreT", false},
		{"prefix", "sec", "secret", false},
		{"empty given", "", "secret", false},
		{"both empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal([]byte(tt.given), []byte(tt.expected)); got != tt.want {
				t.Errorf("Equal(%q, %q) = %v, want %v", tt.given, tt.expected, got, tt.want)
			}
		})
	}
}

func BenchmarkEqual(b *testing.B) {
	given := []byte("benchmark-token-12345")
	expected := []byte("benchmark-token-12345")
	for i := 0; i < b.N; i++ {
		Equal(given, expected)
	}
}
