package api

// Credentials are the secrets identifying the application and the end user.
// Unset values are empty strings.
type Credentials struct {
	ClientID       string
	ConsumerSecret string
	UserID         string
	UserSecret     string
}

// CredentialProvider gives read only access to the credential store.
type CredentialProvider interface {
	Context() Credentials
}

// StaticCredentials is a CredentialProvider holding fixed values.
type StaticCredentials Credentials

func (s StaticCredentials) Context() Credentials { return Credentials(s) }
