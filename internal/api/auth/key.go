// Package auth checks admin API keys against a bcrypt hash from config.
package auth

import "golang.org/x/crypto/bcrypt"

// HashKey wraps bcrypt.GenerateFromPassword for generating the stored hash.
func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyKey wraps bcrypt.CompareHashAndPassword for admin request checks.
func VerifyKey(hash, key string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
