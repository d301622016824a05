package security

import (
	"strings"
	"testing"

	"github.com/haber021/coop-kiosk-backend/pkg/config"
)

func testPINConfig() config.PINConfig {
	// low-cost parameters to keep the test fast
	return config.PINConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func TestHashAndVerifyPIN(t *testing.T) {
	encoded, err := HashPIN("1234", testPINConfig())
	if err != nil {
		t.Fatalf("HashPIN: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$") {
		t.Fatalf("unexpected hash format: %s", encoded)
	}

	ok, err := VerifyPIN("1234", encoded)
	if err != nil {
		t.Fatalf("VerifyPIN: %v", err)
	}
	if !ok {
		t.Fatal("expected matching pin to verify")
	}

	ok, err = VerifyPIN("4321", encoded)
	if err != nil {
		t.Fatalf("VerifyPIN mismatch: %v", err)
	}
	if ok {
		t.Fatal("expected mismatched pin to fail")
	}
}

func TestHashPINRejectsBadFormat(t *testing.T) {
	for _, pin := range []string{"", "12", "12345", "12a4", "abcd"} {
		if _, err := HashPIN(pin, testPINConfig()); err != ErrInvalidPINFormat {
			t.Fatalf("pin %q: expected format error, got %v", pin, err)
		}
	}
}

func TestVerifyPINRejectsMalformedHash(t *testing.T) {
	if _, err := VerifyPIN("1234", "not-a-hash"); err != ErrInvalidHash {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
}
