package util

import (
	"bytes"
	"strings"
	"testing"
)

// fastParams keeps the KDF cheap in tests.
var fastParams = Argon2idParams{Time: 1, MemoryKiB: 64, Parallelism: 1, KeyLen: 32}

func TestArgon2id(t *testing.T) {
	key, err := DeriveArgon2idKey("correct horse battery staple", []byte("random salt"), fastParams)
	if err != nil {
		t.Fatalf("DeriveArgon2idKey failed: %v", err)
	}
	if len(key) != 32 {
		t.Errorf("expected key length 32, got %d", len(key))
	}

	t.Run("RejectZeroTime", func(t *testing.T) {
		p := fastParams
		p.Time = 0
		if _, err := DeriveArgon2idKey("x", []byte("salt"), p); err == nil {
			t.Error("expected error for zero time")
		}
	})
}

func TestHashPassword(t *testing.T) {
	encoded, err := HashPassword("s3cret-pass", fastParams)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=64,t=1,p=1$") {
		t.Fatalf("unexpected encoding %q", encoded)
	}

	t.Run("VerifyMatch", func(t *testing.T) {
		ok, err := VerifyPassword("s3cret-pass", encoded)
		if err != nil {
			t.Fatalf("VerifyPassword failed: %v", err)
		}
		if !ok {
			t.Error("expected password to verify")
		}
	})

	t.Run("VerifyMismatch", func(t *testing.T) {
		ok, err := VerifyPassword("wrong", encoded)
		if err != nil {
			t.Fatalf("VerifyPassword failed: %v", err)
		}
		if ok {
			t.Error("expected wrong password to be rejected")
		}
	})

	t.Run("SaltedPerCall", func(t *testing.T) {
		again, err := HashPassword("s3cret-pass", fastParams)
		if err != nil {
			t.Fatalf("HashPassword failed: %v", err)
		}
		if again == encoded {
			t.Error("expected distinct hashes for the same password")
		}
	})

	t.Run("NormalizedForms", func(t *testing.T) {
		composed, err := HashPassword("caf\u00e9", fastParams)
		if err != nil {
			t.Fatalf("HashPassword failed: %v", err)
		}
		ok, _ := VerifyPassword("cafe\u0301", composed)
		if !ok {
			t.Error("expected NFC and NFD spellings to verify alike")
		}
	})
}

func TestHashPasswordBytes(t *testing.T) {
	pw := []byte("cafe\u0301")
	encoded, err := HashPasswordBytes(pw, fastParams)
	if err != nil {
		t.Fatalf("HashPasswordBytes failed: %v", err)
	}
	if string(pw) != "cafe\u0301" {
		t.Error("HashPasswordBytes must not modify its input")
	}
	ok, err := VerifyPassword("caf\u00e9", encoded)
	if err != nil || !ok {
		t.Errorf("expected composed form to verify, ok=%v err=%v", ok, err)
	}
}

func TestVerifyPasswordMalformed(t *testing.T) {
	cases := []string{
		"",
		"plain",
		"$argon2i$v=19$m=64,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=64,t=1,p=1$c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$garbage$c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=64,t=1,p=1$!!!$a2V5a2V5a2V5a2V5a2V5a2V5",
	}
	for _, c := range cases {
		if _, err := VerifyPassword("x", c); err == nil {
			t.Errorf("expected error for %q", c)
		}
	}
}

func TestDefaultArgon2idParams_MeetsOWASPMinimums(t *testing.T) {
	p := DefaultArgon2idParams()
	if p.Time < 3 {
		t.Errorf("default Time=%d is below OWASP recommended minimum of 3", p.Time)
	}
	if p.MemoryKiB < 64*1024 {
		t.Errorf("default MemoryKiB=%d is below 64 MiB", p.MemoryKiB)
	}
	if err := ValidateArgon2idParams(p); err != nil {
		t.Errorf("default params invalid: %v", err)
	}
}

func TestBytes(t *testing.T) {
	b := []byte{0x01, 0x02, 0x03}
	WipeBytes(b)
	if !bytes.Equal(b, []byte{0, 0, 0}) {
		t.Errorf("WipeBytes left %v", b)
	}
}

func TestEncoding(t *testing.T) {
	normalized := Normalize("caf\u00e9")
	if normalized != "cafe\u0301" {
		t.Errorf("Normalize failed, got %q", normalized)
	}
}

func TestRandom(t *testing.T) {
	t.Run("RandomBytes", func(t *testing.T) {
		b1, err := RandomBytes(32)
		if err != nil {
			t.Fatalf("RandomBytes failed: %v", err)
		}
		b2, err := RandomBytes(32)
		if err != nil {
			t.Fatalf("RandomBytes failed: %v", err)
		}
		if len(b1) != 32 {
			t.Errorf("expected 32 bytes, got %d", len(b1))
		}
		if bytes.Equal(b1, b2) {
			t.Error("RandomBytes should produce different outputs")
		}
	})

	t.Run("RandomChars", func(t *testing.T) {
		s1, err := RandomChars(16)
		if err != nil {
			t.Fatalf("RandomChars failed: %v", err)
		}
		s2, err := RandomChars(16)
		if err != nil {
			t.Fatalf("RandomChars failed: %v", err)
		}
		if len(s1) != 16 {
			t.Errorf("expected length 16, got %d", len(s1))
		}
		if s1 == s2 {
			t.Error("RandomChars should produce different outputs")
		}
	})

	t.Run("RandomIntn", func(t *testing.T) {
		max := 100
		for i := 0; i < 100; i++ {
			n, err := RandomIntn(max)
			if err != nil {
				t.Fatalf("RandomIntn failed: %v", err)
			}
			if n < 0 || n >= max {
				t.Errorf("RandomIntn(%d) returned %d out of range", max, n)
			}
		}
	})
}
