package utils

import "golang.org/x/crypto/bcrypt"

// MinPasswordLength matches the client-side sign-in rule.
const MinPasswordLength = 6

// HashPassword returns the bcrypt hash of plain. A cost outside bcrypt's
// range falls back to the default.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches hash.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
