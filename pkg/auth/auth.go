package authentication

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"
)

type IBasicAuthService interface {
	// Enabled reports whether credentials are configured at all
	Enabled() bool
	Validate(username, password string) bool
	DecodeFromHeader(auth string) (string, string)
}

type BasicAuthTConfig struct {
	Username string

	Password string
}

type basicAuth struct {
	username string
	password string
}

func NewBasicAuthService(config *BasicAuthTConfig) IBasicAuthService {
	if config == nil {
		return &basicAuth{}
	}
	return &basicAuth{
		username: config.Username,
		password: config.Password,
	}
}

func (b *basicAuth) Enabled() bool {
	return b.username != "" || b.password != ""
}

func (b *basicAuth) Validate(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(b.username), []byte(username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(b.password), []byte(password)) == 1
	return userOK && passOK
}

func (b *basicAuth) DecodeFromHeader(auth string) (string, string) {
	encoded := strings.TrimPrefix(auth, "Basic ")

	// Decode the Base64 string
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ""
	}

	// Split the decoded string into username and password
	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return "", ""
	}

	return parts[0], parts[1]
}
