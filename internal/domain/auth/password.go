package auth

import (
	"github.com/rotisserie/eris"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

func hashPassword(password string, cost int) (string, error) {
	if len(password) < minPasswordLength {
		return "", eris.Wrapf(ErrValidation, "password must be at least %d characters", minPasswordLength)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", eris.Wrap(err, "hashing password")
	}
	return string(hashed), nil
}

func verifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
