// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"

	"github.com/xtekky/deepseek4free/lib/secret"
)

// Keypair is a freshly generated x25519 identity. Close releases the
// private key.
type Keypair struct {
	PrivateKey *secret.Buffer
	PublicKey  string
}

// Close releases the private key memory.
func (keypair *Keypair) Close() error {
	if keypair.PrivateKey != nil {
		return keypair.PrivateKey.Close()
	}
	return nil
}

// GenerateKeypair returns a new x25519 identity.
func GenerateKeypair() (*Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("sealed: generating identity: %w", err)
	}
	privateKey, err := secret.NewFromBytes([]byte(identity.String()))
	if err != nil {
		return nil, fmt.Errorf("sealed: protecting identity: %w", err)
	}
	return &Keypair{
		PrivateKey: privateKey,
		PublicKey:  identity.Recipient().String(),
	}, nil
}

// IsSealed reports whether data starts with the age armor header.
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte(armor.Header))
}

// Encrypt seals plaintext to every recipient (age1... strings) and
// returns the armored ciphertext.
func Encrypt(plaintext []byte, recipientKeys []string) ([]byte, error) {
	if len(recipientKeys) == 0 {
		return nil, errors.New("sealed: at least one recipient is required")
	}

	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("sealed: parsing recipient %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var ciphertext bytes.Buffer
	armorWriter := armor.NewWriter(&ciphertext)
	writer, err := age.Encrypt(armorWriter, recipients...)
	if err != nil {
		return nil, fmt.Errorf("sealed: creating encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("sealed: encrypting: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("sealed: finalizing payload: %w", err)
	}
	if err := armorWriter.Close(); err != nil {
		return nil, fmt.Errorf("sealed: finalizing armor: %w", err)
	}
	return ciphertext.Bytes(), nil
}

// Decrypt opens armored ciphertext with the identity in privateKey.
// The caller closes the returned buffer.
func Decrypt(ciphertext []byte, privateKey *secret.Buffer) (*secret.Buffer, error) {
	identities, err := parseIdentities(privateKey)
	if err != nil {
		return nil, err
	}

	reader, err := age.Decrypt(armor.NewReader(bytes.NewReader(ciphertext)), identities...)
	if err != nil {
		return nil, fmt.Errorf("sealed: decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("sealed: reading plaintext: %w", err)
	}
	if len(plaintext) == 0 {
		return nil, errors.New("sealed: payload is empty")
	}
	return secret.NewFromBytes(plaintext)
}

// ParsePublicKey validates an age1... recipient string.
func ParsePublicKey(publicKey string) error {
	if _, err := age.ParseX25519Recipient(publicKey); err != nil {
		return fmt.Errorf("sealed: invalid public key: %w", err)
	}
	return nil
}

// parseIdentities accepts an identity file body: one AGE-SECRET-KEY-1
// line per identity, with blank lines and # comments ignored.
func parseIdentities(privateKey *secret.Buffer) ([]age.Identity, error) {
	var identities []age.Identity
	scanner := bufio.NewScanner(bytes.NewReader(privateKey.Bytes()))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		identity, err := age.ParseX25519Identity(line)
		if err != nil {
			return nil, fmt.Errorf("sealed: parsing identity: %w", err)
		}
		identities = append(identities, identity)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("sealed: reading identities: %w", err)
	}
	if len(identities) == 0 {
		return nil, errors.New("sealed: no identities found")
	}
	return identities, nil
}
