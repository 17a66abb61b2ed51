package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

const devKeyBits = 2048

// LoadRSAPrivateKeyFromPEM decodes a PKCS#1 or PKCS#8 RSA private key.
func LoadRSAPrivateKeyFromPEM(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("PEM is not an RSA private key")
	}
	return key, nil
}

// LoadOrGenerateKey reads the PEM at path. An empty path yields a fresh
// in-memory key; tokens then do not survive a restart.
func LoadOrGenerateKey(path string) (key *rsa.PrivateKey, generated bool, err error) {
	if path == "" {
		key, err = rsa.GenerateKey(rand.Reader, devKeyBits)
		return key, true, err
	}
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read jwt key: %w", err)
	}
	key, err = LoadRSAPrivateKeyFromPEM(pemBytes)
	return key, false, err
}
