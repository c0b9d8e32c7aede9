package constants

// HTTP headers
const (
	HeaderAuthorization = "Authorization"
	HeaderBearerPrefix  = "Bearer "
)

// Token kinds accepted by the auth middleware
const (
	TokenTypeSession = "session"
	TokenTypeAPIKey  = "api_key"
)

// APIKeyPrefix distinguishes API keys from session tokens in the
// Authorization header.
const APIKeyPrefix = "grad_"

// Supported build architectures (Nix platform tuples)
var Architectures = []string{
	"x86_64-linux",
	"aarch64-linux",
	"x86_64-darwin",
	"aarch64-darwin",
}

// IsArchitecture reports whether s is a known architecture tuple.
func IsArchitecture(s string) bool {
	for _, a := range Architectures {
		if a == s {
			return true
		}
	}
	return false
}
