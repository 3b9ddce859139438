// Package cryptox implements the client's cryptographic primitives: the
// content-identity hash used for deduplication, AES-GCM sealing of blobs
// before they leave the device, and per-object key derivation.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/pixelvault/internal/common"
	"golang.org/x/crypto/argon2"
)

// ContentHash computes the stable content identity of a local media item:
// sha256 over the owner id, logical name, capture time (RFC3339, UTC) and the
// full file content at path. Two records with equal hashes denote the same
// photo, regardless of which device produced them.
//
// Reading the whole file is intentional; name and timestamp alone are not
// collision-safe because device media stores reuse names.
func ContentHash(ownerID, name string, takenAt time.Time, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", common.ErrIO, path, err)
	}
	defer f.Close()

	h := sha256.New()
	h.Write([]byte(ownerID))
	h.Write([]byte(name))
	h.Write([]byte(takenAt.UTC().Format(time.RFC3339)))

	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("%w: read %s: %v", common.ErrIO, path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// DeriveBucketKey turns the user's passphrase into the 32-byte bucket key,
// salted with the bucket id so the same passphrase yields different keys for
// different buckets.
func DeriveBucketKey(passphrase []byte, bucket string) []byte {
	return argon2.IDKey(passphrase, []byte(bucket), 1, 64*1024, 4, 32)
}

// DeriveObjectKey derives a 32-byte AES key for one stored object from the
// bucket key and the object's storage id. The id acts as the salt, so every
// object is sealed with its own key.
func DeriveObjectKey(bucketKey []byte, objectID string) []byte {
	return argon2.IDKey(bucketKey, []byte(objectID), 1, 64*1024, 4, 32)
}

// SealBlob encrypts plaintext with AES-GCM under key. The random nonce is
// prepended to the returned ciphertext.
func SealBlob(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(aesgcm.NonceSize())
	return append(nonce, aesgcm.Seal(nil, nonce, plaintext, nil)...), nil
}

// OpenBlob reverses SealBlob: it splits off the nonce and decrypts the rest.
func OpenBlob(sealed, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(sealed) < aesgcm.NonceSize() {
		return nil, fmt.Errorf("sealed blob too short")
	}
	nonce, ciphertext := sealed[:aesgcm.NonceSize()], sealed[aesgcm.NonceSize():]

	return aesgcm.Open(nil, nonce, ciphertext, nil)
}
