// gpg.go verifies detached ASCII-armored signatures of uploaded artifacts against a
// keyring of trusted OpenPGP public keys.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

const publicKeyBlockBegin = "-----BEGIN PGP PUBLIC KEY BLOCK-----"

// Keyring is a set of trusted public keys.
type Keyring struct {
	entities openpgp.EntityList
}

// ParseKeyring reads one or more ASCII-armored public key blocks
func ParseKeyring(keysArmored string) (*Keyring, error) {
	keysArmored = strings.ReplaceAll(keysArmored, "\r\n", "\n")
	if !strings.Contains(keysArmored, publicKeyBlockBegin) {
		return nil, errors.New("invalid keyring: no public key block")
	}

	var entities openpgp.EntityList
	for _, block := range strings.SplitAfter(keysArmored, "-----END PGP PUBLIC KEY BLOCK-----") {
		if !strings.Contains(block, publicKeyBlockBegin) {
			continue
		}
		el, err := openpgp.ReadArmoredKeyRing(strings.NewReader(block))
		if err != nil {
			return nil, fmt.Errorf("failed to parse public key: %w", err)
		}
		entities = append(entities, el...)
	}
	return &Keyring{entities: entities}, nil
}

// LoadKeyring reads a keyring file
func LoadKeyring(path string) (*Keyring, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}
	return ParseKeyring(string(data))
}

// Len returns the number of keys in the keyring
func (k *Keyring) Len() int {
	return len(k.entities)
}

// SignatureResult identifies the key that produced a valid signature
type SignatureResult struct {
	KeyID          string
	KeyFingerprint string
}

// VerifyDetached checks an armored (or binary) detached signature over data
func (k *Keyring) VerifyDetached(data io.Reader, signature []byte) (*SignatureResult, error) {
	if len(signature) == 0 {
		return nil, errors.New("signature cannot be empty")
	}

	sig := signature
	if block, err := armor.Decode(bytes.NewReader(signature)); err == nil {
		decoded, err := io.ReadAll(block.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read armored signature: %w", err)
		}
		sig = decoded
	}

	signer, err := openpgp.CheckDetachedSignature(k.entities, data, bytes.NewReader(sig), nil)
	if err != nil {
		return nil, fmt.Errorf("signature verification failed: %w", err)
	}
	return &SignatureResult{
		KeyID:          fmt.Sprintf("%X", signer.PrimaryKey.KeyId),
		KeyFingerprint: fmt.Sprintf("%X", signer.PrimaryKey.Fingerprint),
	}, nil
}

// VerifyFile checks the detached signature of the file at path
func (k *Keyring) VerifyFile(path string, signature []byte) (*SignatureResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open signed file: %w", err)
	}
	defer f.Close()
	return k.VerifyDetached(f, signature)
}
