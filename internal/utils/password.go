package utils

import "golang.org/x/crypto/bcrypt"

// MinPasswordLength is the shortest password accepted on create or change.
const MinPasswordLength = 6

// PasswordCost is the bcrypt cost used for new hashes. Tests lower it.
var PasswordCost = 12

// HashPassword hashes a given password using bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	return string(bytes), err
}

// CheckPasswordHash compares a plain password with its hashed version.
func CheckPasswordHash(password, hash string) bool {
	if hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
