package signing

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSignVerify(t *testing.T) {
	t.Parallel()

	s, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}

	sig, err := s.Sign([]byte(`"bafylist"`))
	if err != nil {
		t.Fatal(err)
	}

	t.Run("valid signature returns payload", func(t *testing.T) {
		t.Parallel()

		payload, err := Verify(sig, s.PublicKey())
		if err != nil {
			t.Fatal(err)
		}
		if string(payload) != `"bafylist"` {
			t.Errorf("Verify() = %q", payload)
		}
	})

	t.Run("other key rejects", func(t *testing.T) {
		t.Parallel()

		other, err := GenerateKey()
		if err != nil {
			t.Fatal(err)
		}
		if _, err := Verify(sig, other.PublicKey()); !errors.Is(err, ErrInvalidSignature) {
			t.Errorf("expected ErrInvalidSignature, got %v", err)
		}
	})

	t.Run("garbage signature rejects", func(t *testing.T) {
		t.Parallel()

		if _, err := Verify("0OIl", s.PublicKey()); !errors.Is(err, ErrInvalidSignature) {
			t.Errorf("expected ErrInvalidSignature, got %v", err)
		}
		if _, err := Verify("abc", s.PublicKey()); !errors.Is(err, ErrInvalidSignature) {
			t.Errorf("expected ErrInvalidSignature for short input, got %v", err)
		}
	})

	t.Run("malformed public key", func(t *testing.T) {
		t.Parallel()

		if _, err := Verify(sig, "abc"); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("expected ErrInvalidKey, got %v", err)
		}
	})
}

func TestKeyFile(t *testing.T) {
	t.Parallel()

	t.Run("create then load returns the same key", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "keys", "node-key.json")
		created, err := LoadOrCreateKey(path)
		if err != nil {
			t.Fatal(err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("unexpected permissions %v", info.Mode().Perm())
		}

		loaded, err := LoadOrCreateKey(path)
		if err != nil {
			t.Fatal(err)
		}
		if loaded.PublicKey() != created.PublicKey() {
			t.Error("reloaded key differs")
		}

		sig, _ := loaded.Sign([]byte("x"))
		if _, err := Verify(sig, created.PublicKey()); err != nil {
			t.Errorf("reloaded key cannot sign: %v", err)
		}
	})

	t.Run("corrupt file is an error", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "node-key.json")
		if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadOrCreateKey(path); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("expected ErrInvalidKey, got %v", err)
		}
	})

	t.Run("mismatched halves are rejected", func(t *testing.T) {
		t.Parallel()

		a, _ := GenerateKey()
		b, _ := GenerateKey()
		a.public = b.public

		path := filepath.Join(t.TempDir(), "node-key.json")
		if err := a.SaveKey(path); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadKey(path); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("expected ErrInvalidKey, got %v", err)
		}
	})
}
