package secrets

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// ErrCredential is returned for anything that prevents a stored secret from being
// recovered: bad encoding, wrong key, tampering or broken padding.
var ErrCredential = errors.New("credential error")

const (
	ivLength  = aes.BlockSize
	tagLength = sha256.Size

	// scrypt cost parameters. Derivation runs once per process.
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1

	DefaultSalt = "pasal/gateway-credentials/v1"
)

// Encryptor encrypts tenant gateway credentials at rest.
//
// Layout of the encoded value: base64(iv || aes-256-cbc(pkcs7(plaintext)) || hmac-sha256(iv || ciphertext)).
// A fresh iv is drawn for every call, so encrypting the same plaintext twice never
// yields the same output.
type Encryptor struct {
	block  cipher.Block
	macKey []byte
	rand   io.Reader
}

// NewEncryptor derives the encryption and authentication keys from passphrase with scrypt.
func NewEncryptor(passphrase, salt string) (*Encryptor, error) {
	if strings.TrimSpace(passphrase) == "" {
		return nil, errors.New("secrets: encryption passphrase is empty")
	}
	if salt == "" {
		salt = DefaultSalt
	}

	keys, err := scrypt.Key([]byte(passphrase), []byte(salt), scryptN, scryptR, scryptP, 64)
	if err != nil {
		return nil, fmt.Errorf("secrets: derive key: %w", err)
	}

	block, err := aes.NewCipher(keys[:32])
	if err != nil {
		return nil, fmt.Errorf("secrets: init cipher: %w", err)
	}

	return &Encryptor{
		block:  block,
		macKey: keys[32:],
		rand:   rand.Reader,
	}, nil
}

// Encrypt returns the base64 encoded envelope for plaintext.
func (e *Encryptor) Encrypt(plaintext []byte) (string, error) {
	padded := pad(plaintext, aes.BlockSize)

	out := make([]byte, ivLength+len(padded), ivLength+len(padded)+tagLength)
	iv := out[:ivLength]
	if _, err := io.ReadFull(e.rand, iv); err != nil {
		return "", fmt.Errorf("%w: generate iv: %w", ErrCredential, err)
	}

	cipher.NewCBCEncrypter(e.block, iv).CryptBlocks(out[ivLength:], padded)
	out = append(out, e.tag(out)...)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. It never returns partial plaintext.
func (e *Encryptor) Decrypt(encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrCredential, err)
	}

	body := len(raw) - ivLength - tagLength
	if body <= 0 || body%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: malformed ciphertext", ErrCredential)
	}

	signed, tag := raw[:len(raw)-tagLength], raw[len(raw)-tagLength:]
	if !hmac.Equal(tag, e.tag(signed)) {
		return nil, fmt.Errorf("%w: authentication failed", ErrCredential)
	}

	iv, ciphertext := signed[:ivLength], signed[ivLength:]
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(e.block, iv).CryptBlocks(plain, ciphertext)

	unpadded, err := unpad(plain, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredential, err)
	}
	return unpadded, nil
}

func (e *Encryptor) tag(b []byte) []byte {
	mac := hmac.New(sha256.New, e.macKey)
	mac.Write(b)
	return mac.Sum(nil)
}

func pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(bytes.Clone(b), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, errors.New("invalid padding length")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size {
		return nil, errors.New("invalid padding")
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}
