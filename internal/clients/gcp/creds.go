package gcp

import (
	"strings"

	"google.golang.org/api/option"
)

// Credentials holds either inline service-account JSON or a path to a key file.
// Empty means application default credentials.
type Credentials struct {
	JSON string
	File string
}

func (c Credentials) ClientOptions() []option.ClientOption {
	creds := strings.TrimSpace(c.JSON)
	if creds == "" {
		creds = strings.TrimSpace(c.File)
	}
	opts := []option.ClientOption{}
	if creds == "" {
		return opts
	}
	if strings.HasPrefix(creds, "{") {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	} else {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	return opts
}
