package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DeBrosOfficial/walletauth/pkg/wallet"
)

// ErrInvalidProof covers every reason a sign-in proof is rejected. The wrapped detail is
// for logs only.
var ErrInvalidProof = errors.New("invalid social proof")

// Proof is a verified Farcaster identity.
type Proof struct {
	FID               int64
	CustodyAddress    string   // lowercase signer of the message
	VerifiedAddresses []string // lowercase, may be empty
	Nonce             string
}

// Request is the client-supplied proof.
type Request struct {
	Message   string
	Signature string
	Nonce     string
}

// Verifier checks Sign-In-With-Farcaster proofs.
type Verifier struct {
	// Domain, when set, must equal the message domain.
	Domain string
	// Resolver confirms the custody address owns the fid and supplies verified addresses.
	// Without one no proof verifies: the fid in the message is only a claim.
	Resolver AddressResolver
	// MaxAge bounds how old Issued At may be when the message has no expiration time.
	MaxAge time.Duration
	Now    func() time.Time
}

func (v *Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// Verify validates req. Proof failures wrap ErrInvalidProof; resolver failures wrap
// ErrResolverUnavailable and must not be treated as authentication outcomes.
func (v *Verifier) Verify(ctx context.Context, req Request) (*Proof, error) {
	if req.Message == "" || req.Signature == "" || req.Nonce == "" {
		return nil, fmt.Errorf("%w: message, signature and nonce are required", ErrInvalidProof)
	}

	msg, err := ParseMessage(req.Message)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	if msg.Nonce != req.Nonce {
		return nil, fmt.Errorf("%w: nonce mismatch", ErrInvalidProof)
	}
	if v.Domain != "" && msg.Domain != v.Domain {
		return nil, fmt.Errorf("%w: domain %q not accepted", ErrInvalidProof, msg.Domain)
	}

	now := v.now()
	if msg.ExpirationTime != nil && !now.Before(*msg.ExpirationTime) {
		return nil, fmt.Errorf("%w: message expired", ErrInvalidProof)
	}
	if msg.NotBefore != nil && now.Before(*msg.NotBefore) {
		return nil, fmt.Errorf("%w: message not yet valid", ErrInvalidProof)
	}
	if msg.ExpirationTime == nil && v.MaxAge > 0 && now.Sub(msg.IssuedAt) > v.MaxAge {
		return nil, fmt.Errorf("%w: message too old", ErrInvalidProof)
	}

	fid, err := msg.FID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}

	signer, err := wallet.Recover(req.Signature, req.Message)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	if !wallet.Equal(signer, msg.Address) {
		return nil, fmt.Errorf("%w: signer does not match message address", ErrInvalidProof)
	}

	if v.Resolver == nil {
		return nil, fmt.Errorf("%w: fid %d not confirmed, no resolver configured", ErrInvalidProof, fid)
	}
	proof := &Proof{FID: fid, CustodyAddress: signer, Nonce: msg.Nonce}

	owned, err := v.Resolver.CustodyFID(ctx, signer)
	if err != nil {
		return nil, err
	}
	if owned != fid {
		return nil, fmt.Errorf("%w: custody address owns fid %d, message claims %d", ErrInvalidProof, owned, fid)
	}
	proof.VerifiedAddresses, err = v.Resolver.VerifiedAddresses(ctx, fid)
	if err != nil {
		return nil, err
	}
	return proof, nil
}
