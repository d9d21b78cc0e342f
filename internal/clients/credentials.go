package clients

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const placeholderHashCost = bcrypt.DefaultCost

// Credentials are throwaway login details for placeholder clients created from an inbound message.
type Credentials struct {
	Username     string
	PasswordHash string
}

// GenerateCredentials derives a username from the address and hashes a random password.
// The plaintext password is never returned; the client resets it if they ever log in.
func GenerateCredentials(address string) (Credentials, error) {
	suffix, err := randomHex(4)
	if err != nil {
		return Credentials{}, fmt.Errorf("clients: username suffix: %w", err)
	}
	password, err := randomHex(16)
	if err != nil {
		return Credentials{}, fmt.Errorf("clients: password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), placeholderHashCost)
	if err != nil {
		return Credentials{}, fmt.Errorf("clients: hash password: %w", err)
	}
	return Credentials{
		Username:     usernameBase(address) + "_" + suffix,
		PasswordHash: string(hash),
	}, nil
}

// VerifyPassword checks a plaintext password against a stored hash.
func VerifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func usernameBase(address string) string {
	address = strings.ToLower(strings.TrimSpace(address))
	if at := strings.Index(address, "@"); at > 0 {
		address = address[:at]
	}
	var b strings.Builder
	for _, r := range address {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "client"
	}
	return b.String()
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
