package interfaces

// Claim is the authenticated identity carried by a request.
type Claim struct {
	Account string
	Name    string
}

// TokenVerifier turns a bearer token into a Claim or fails with fault.ErrUnauthorized.
type TokenVerifier interface {
	VerifyToken(token string) (Claim, error)
}
