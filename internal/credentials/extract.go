package credentials

import "strings"

// Header names the credential transport uses.
const (
	HeaderAuthorization = "Authorization"
	HeaderMasterToken   = "X-Master-Token"
	bearerPrefix        = "Bearer "
)

// Credentials is whatever the request carried. All three fields may be set at
// once; the authenticator chain decides precedence.
type Credentials struct {
	PIN          string
	SessionToken string
	MasterToken  string
}

func (c Credentials) Empty() bool {
	return c.PIN == "" && c.SessionToken == "" && c.MasterToken == ""
}

// Extract pulls the PIN from the request body field, the session token from a
// Bearer Authorization header and the master token from its dedicated header.
// Non-Bearer authorization schemes are ignored.
func Extract(authorization, masterHeader, bodyPIN string) Credentials {
	creds := Credentials{
		PIN:         strings.TrimSpace(bodyPIN),
		MasterToken: strings.TrimSpace(masterHeader),
	}

	if strings.HasPrefix(authorization, bearerPrefix) {
		creds.SessionToken = strings.TrimSpace(strings.TrimPrefix(authorization, bearerPrefix))
	}

	return creds
}
