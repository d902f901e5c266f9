package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor used for admin secret hashes
const BcryptCost = 12

// HashSecret hashes a shared secret for storage in configuration
func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckSecret compares a candidate against a bcrypt hash in constant time
func CheckSecret(hashedSecret, candidate string) bool {
	if hashedSecret == "" || candidate == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashedSecret), []byte(candidate)) == nil
}
