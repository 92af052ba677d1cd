package auth

// LoginRequest is the request body for wallet login
type LoginRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
	Message   string `json:"message"`
}

// RefreshRequest is the request body for token refresh and logout
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// SocialVerifyRequest is the request body for Sign-In-With-Farcaster
type SocialVerifyRequest struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
	Nonce     string `json:"nonce"`
	SkipLink  bool   `json:"skipLink,omitempty"`
}

// LinkRequest is the request body for finalizing a pending social link
type LinkRequest struct {
	PendingLinkToken string `json:"pendingLinkToken"`
	Address          string `json:"address"`
	Signature        string `json:"signature"`
	Message          string `json:"message"`
}

// SessionResponse is returned by every flow that opens or rotates a session
type SessionResponse struct {
	Linked       *bool  `json:"linked,omitempty"`
	Address      string `json:"address"`
	Role         string `json:"role"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// PendingLinkResponse is returned when a social identity has no wallet yet
type PendingLinkResponse struct {
	Linked           bool   `json:"linked"`
	FID              int64  `json:"fid"`
	PendingLinkToken string `json:"pendingLinkToken"`
	ExpiresAt        string `json:"expiresAt"`
}

// NonceResponse is returned by GET /auth/nonce
type NonceResponse struct {
	Nonce     string `json:"nonce"`
	ExpiresAt string `json:"expiresAt"`
}
