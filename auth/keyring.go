// Package auth keeps the settings endpoint token in the system keyring.
package auth

import (
	"errors"

	"github.com/vodkit-cli/vodkit/constant"
	"github.com/zalando/go-keyring"
)

const user = "settings-token"

// ErrNoToken is returned when no token was stored.
var ErrNoToken = errors.New("not logged in, run \"vodkit settings login\"")

// SetToken stores the bearer token used for the host settings endpoint.
func SetToken(token string) error {
	return keyring.Set(constant.Vodkit, user, token)
}

// GetToken returns the stored bearer token or ErrNoToken.
func GetToken() (string, error) {
	token, err := keyring.Get(constant.Vodkit, user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoToken
	}
	return token, err
}

// DeleteToken forgets the stored token. Deleting a missing token is not an error.
func DeleteToken() error {
	if err := keyring.Delete(constant.Vodkit, user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}
