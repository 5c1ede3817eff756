package provenance

import (
	"bytes"
	"strings"
	"testing"
)

func TestDerivePassword_Deterministic(t *testing.T) {
	secret := bytes.Repeat([]byte{0x5a}, 32)

	a, err := DerivePassword("b1a2c3d4e5f60718", "SECRET", secret)
	if err != nil {
		t.Fatalf("DerivePassword failed: %v", err)
	}
	b, err := DerivePassword("b1a2c3d4e5f60718", "SECRET", secret)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("two calls with identical inputs differ: %q vs %q", a, b)
	}
	if len(a) != passwordLength {
		t.Errorf("expected %d-char password, got %d (%q)", passwordLength, len(a), a)
	}
}

func TestDerivePassword_InputSensitivity(t *testing.T) {
	secret := bytes.Repeat([]byte{0x5a}, 32)
	base, err := DerivePassword("b1a2c3d4e5f60718", "SECRET", secret)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("BuildID", func(t *testing.T) {
		got, _ := DerivePassword("b1a2c3d4e5f60719", "SECRET", secret)
		if got == base {
			t.Error("changing the build identifier must change the password")
		}
	})
	t.Run("Classification", func(t *testing.T) {
		got, _ := DerivePassword("b1a2c3d4e5f60718", "PUBLIC", secret)
		if got == base {
			t.Error("changing the classification must change the password")
		}
	})
	t.Run("Secret", func(t *testing.T) {
		other := bytes.Repeat([]byte{0x5b}, 32)
		got, _ := DerivePassword("b1a2c3d4e5f60718", "SECRET", other)
		if got == base {
			t.Error("changing the install secret must change the password")
		}
	})
}

func TestDerivePassword_Typeable(t *testing.T) {
	pw, err := DerivePassword("abc", "SECRET", []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	// base58: no ambiguous characters, nothing to escape in a shell.
	for _, c := range pw {
		if strings.ContainsRune("0OIl+/= ", c) {
			t.Errorf("password contains hard-to-type character %q: %s", c, pw)
		}
	}
}

func TestDerivePassword_RequiredInputs(t *testing.T) {
	if _, err := DerivePassword("", "SECRET", []byte("s")); err == nil {
		t.Error("expected error for empty build identifier")
	}
	if _, err := DerivePassword("abc", "", []byte("s")); err == nil {
		t.Error("expected error for empty classification")
	}
	if _, err := DerivePassword("abc", "SECRET", nil); err == nil {
		t.Error("expected error for missing install secret")
	}
}
