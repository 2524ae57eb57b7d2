package sealer

import (
	"regexp"
	"testing"
)

func newIssuer(t *testing.T) *Issuer {
	t.Helper()
	issuer, err := New("test-secret-with-enough-bytes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return issuer
}

func TestNew_RejectsShortSecret(t *testing.T) {
	if _, err := New("short"); err != ErrWeakSecret {
		t.Errorf("expected ErrWeakSecret, got %v", err)
	}
}

func TestSessionToken_Unique(t *testing.T) {
	issuer := newIssuer(t)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := issuer.SessionToken()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[token] {
			t.Fatalf("duplicate token generated: %s", token)
		}
		seen[token] = true
	}
}

func TestNumericCode(t *testing.T) {
	issuer := newIssuer(t)
	pattern := regexp.MustCompile(`^\d{6}$`)

	for i := 0; i < 50; i++ {
		code, err := issuer.NumericCode(6)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !pattern.MatchString(code) {
			t.Errorf("code %q is not 6 digits", code)
		}
	}

	if _, err := issuer.NumericCode(0); err == nil {
		t.Error("expected error for zero length")
	}
}

func TestSealAndMatch(t *testing.T) {
	issuer := newIssuer(t)
	digest := issuer.Seal("token-a", "123456")

	tests := []struct {
		name  string
		scope string
		code  string
		want  bool
	}{
		{"same scope and code", "token-a", "123456", true},
		{"wrong code", "token-a", "123457", false},
		{"other scope", "token-b", "123456", false},
		{"leading zero dropped", "token-a", "23456", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := issuer.Match(tt.scope, tt.code, digest); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRedact(t *testing.T) {
	if got := Redact("abcdefghijkl"); got != "abcdefgh..." {
		t.Errorf("Redact() = %q", got)
	}
	if got := Redact("abc"); got != "abc" {
		t.Errorf("Redact() = %q", got)
	}
}
