package password

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt cost used for new hashes.
var Cost = bcrypt.DefaultCost

// ErrTooLong is returned for passwords bcrypt cannot hash (more than 72 bytes).
var ErrTooLong = bcrypt.ErrPasswordTooLong

// Hash derives a salted one-way hash from a plaintext password.
func Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches the stored hash.
func Verify(hash, plaintext string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	return err == nil
}

var dummyHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("learnlog-dummy-password"), Cost)
	if err != nil {
		return nil
	}
	return h
})

// Burn runs a comparison against a throwaway hash so that a lookup miss costs
// about as much time as a wrong password.
func Burn(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(plaintext))
}

// IsTooLong reports whether err was caused by an over-long password.
func IsTooLong(err error) bool {
	return errors.Is(err, ErrTooLong)
}
