package signing

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/nacl/sign"
)

var (
	// ErrInvalidSignature is returned when a signature does not verify.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInvalidKey is returned for malformed keys.
	ErrInvalidKey = errors.New("invalid key")
)

const (
	publicKeySize  = 32
	privateKeySize = 64
)

// Signer signs payloads on behalf of this node.
type Signer interface {
	// Sign returns the base58 signed message for payload.
	Sign(payload []byte) (string, error)

	// PublicKey returns the base58 public key that verifies Sign output.
	PublicKey() string
}

// NaclSigner signs with an Ed25519 key through x/crypto/nacl/sign.
type NaclSigner struct {
	public  *[publicKeySize]byte
	private *[privateKeySize]byte
}

// GenerateKey creates a signer with a fresh random key.
func GenerateKey() (*NaclSigner, error) {
	pub, priv, err := sign.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return &NaclSigner{public: pub, private: priv}, nil
}

// Sign implements Signer.
func (s *NaclSigner) Sign(payload []byte) (string, error) {
	signed := sign.Sign(nil, payload, s.private)
	return base58.Encode(signed), nil
}

// PublicKey implements Signer.
func (s *NaclSigner) PublicKey() string {
	return base58.Encode(s.public[:])
}

// Verify checks a base58 signed message against a base58 public key and
// returns the signed payload.
func Verify(signature, publicKey string) ([]byte, error) {
	pub, err := decodeKey(publicKey, publicKeySize)
	if err != nil {
		return nil, err
	}
	signed, err := base58.Decode(signature)
	if err != nil || len(signed) < sign.Overhead {
		return nil, ErrInvalidSignature
	}

	var key [publicKeySize]byte
	copy(key[:], pub)
	payload, ok := sign.Open(nil, signed, &key)
	if !ok {
		return nil, ErrInvalidSignature
	}
	return payload, nil
}

func decodeKey(s string, size int) ([]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	if len(b) != size {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, size, len(b))
	}
	return b, nil
}

// keyFile is the on-disk form of a node key.
type keyFile struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

// LoadKey reads a key file written by SaveKey.
func LoadKey(path string) (*NaclSigner, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	pub, err := decodeKey(kf.PublicKey, publicKeySize)
	if err != nil {
		return nil, err
	}
	priv, err := decodeKey(kf.PrivateKey, privateKeySize)
	if err != nil {
		return nil, err
	}

	s := &NaclSigner{public: new([publicKeySize]byte), private: new([privateKeySize]byte)}
	copy(s.public[:], pub)
	copy(s.private[:], priv)

	// The private key embeds its public half.
	if string(priv[32:]) != string(pub) {
		return nil, fmt.Errorf("%w: public key does not match private key", ErrInvalidKey)
	}
	return s, nil
}

// SaveKey writes the signer's key pair to path with owner-only permissions.
func (s *NaclSigner) SaveKey(path string) error {
	data, err := json.MarshalIndent(keyFile{
		PublicKey:  s.PublicKey(),
		PrivateKey: base58.Encode(s.private[:]),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return nil
}

// LoadOrCreateKey loads the key at path, generating and saving a new one
// when the file does not exist.
func LoadOrCreateKey(path string) (*NaclSigner, error) {
	s, err := LoadKey(path)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	s, err = GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := s.SaveKey(path); err != nil {
		return nil, err
	}
	return s, nil
}
