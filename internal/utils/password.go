package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword bcrypt-hashes the owner's password at the given cost. The
// hash gates every key lifecycle operation; the plaintext is never stored.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the stored bcrypt hash.
// Password possession is the sole recovery credential for a lost token, so
// this check stands between a caller and every mutation of their key.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
