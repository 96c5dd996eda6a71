package password

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the default bcrypt cost
	DefaultCost = 12

	// tempAlphabet avoids ambiguous characters (0/O, 1/l/I) since temp
	// passwords are read out loud or copied from a screen once.
	tempAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

	// TempLength is the length of generated temporary passwords
	TempLength = 10
)

// Hash hashes a password using bcrypt
func Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify compares a password with a hash
func Verify(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// HashToken hashes a token using SHA256 (for refresh tokens)
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// GenerateTemp generates a random temporary password for accounts
// created without an initial password.
func GenerateTemp() (string, error) {
	buf := make([]byte, TempLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, TempLength)
	for i, b := range buf {
		out[i] = tempAlphabet[int(b)%len(tempAlphabet)]
	}
	return string(out), nil
}

// ValidatePassword checks if password meets requirements
func ValidatePassword(password string) bool {
	// Minimum 8 characters
	return len(password) >= 8
}
