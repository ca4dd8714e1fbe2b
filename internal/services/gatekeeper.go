package services

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/localnerve/sheetsdb/internal/models"
)

// Authorize checks an Authorization header against a project's auth config.
// A missing config or auth type "none" allows every request.
func Authorize(auth *models.ProjectAuth, header string) bool {
	if auth == nil || auth.AuthType == "" || auth.AuthType == models.AuthNone {
		return true
	}

	if header == "" {
		return false
	}

	var settings models.AuthSettings
	if err := auth.AuthConfig.Decode(&settings); err != nil {
		log.WithField("project", auth.ProjectID).Warnf("Unreadable auth config: %v", err)
		return false
	}

	switch auth.AuthType {
	case models.AuthBearer:
		token := strings.TrimPrefix(header, "Bearer ")
		return secureEqual(token, settings.Token)

	case models.AuthBasic:
		encoded := strings.TrimPrefix(header, "Basic ")
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return false
		}
		username, password, ok := strings.Cut(string(decoded), ":")
		if !ok {
			return false
		}
		// evaluate both so timing does not reveal which field failed
		userOK := secureEqual(username, settings.Username)
		passOK := secureEqual(password, settings.Password)
		return userOK && passOK
	}

	return false
}

// CheckMethodEnabled reports whether verb is enabled on the endpoint. A missing endpoint denies.
func CheckMethodEnabled(endpoint *models.Endpoint, verb string) bool {
	if endpoint == nil {
		return false
	}
	return endpoint.MethodEnabled(verb)
}

// secureEqual compares in constant time. An unset expected value never matches.
func secureEqual(given, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(expected)) == 1
}
