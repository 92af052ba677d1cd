// Package auth runs the wallet and social sign-in flows on top of the token, refresh,
// pending-link and account components. Every method returns errors from pkg/errors so the
// HTTP layer only has to render them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/DeBrosOfficial/walletauth/pkg/errors"
	"github.com/DeBrosOfficial/walletauth/pkg/logging"
	"github.com/DeBrosOfficial/walletauth/pkg/pending"
	"github.com/DeBrosOfficial/walletauth/pkg/refresh"
	"github.com/DeBrosOfficial/walletauth/pkg/social"
	"github.com/DeBrosOfficial/walletauth/pkg/token"
	"github.com/DeBrosOfficial/walletauth/pkg/users"
	"github.com/DeBrosOfficial/walletauth/pkg/wallet"
)

// Client-facing messages. They are part of the HTTP contract.
const (
	MsgAuthFailed          = "Authentication failed"
	MsgInvalidRefresh      = "Invalid refresh token"
	MsgRefreshExpired      = "Refresh token expired"
	MsgReuseDetected       = "Refresh token reused; all sessions in this family have been revoked"
	MsgInvalidSocialProof  = "Invalid social proof"
	MsgInvalidLinkToken    = "Invalid or expired link token"
	MsgSocialAlreadyLinked = "Social account is already linked to another wallet"
	MsgWalletAlreadyLinked = "Wallet is already linked to another social account"
)

// Session is the credential pair handed to a client after a successful sign-in or rotation.
type Session struct {
	Address          string
	Role             string
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// SocialRequest is a Sign-In-With-Farcaster proof plus the client's linking preference.
type SocialRequest struct {
	Message   string
	Signature string
	Nonce     string
	SkipLink  bool
}

// SocialResult is either a session (Linked) or a pending link awaiting a wallet signature.
type SocialResult struct {
	Linked           bool
	FID              int64
	Session          *Session
	PendingLinkToken string
	PendingExpiresAt time.Time
}

// Deps are the collaborators of a Service. Nonces and Social are optional; without Social,
// or with a Social verifier that has no resolver, the social routes report every proof as
// invalid.
type Deps struct {
	Logger   *logging.ColoredLogger
	Verifier wallet.Verifier
	Issuer   *token.Issuer
	Rotator  *refresh.Rotator
	Users    users.Store
	Links    *pending.Coordinator
	Nonces   *pending.NonceRegistry
	Social   *social.Verifier
	// Admins are lowercase wallet addresses created with the admin role.
	Admins []string
	// StoreTimeout bounds each account-store call.
	StoreTimeout time.Duration
	// RequireNonce makes every signed message (login, link and social proof) consume a
	// nonce issued by IssueNonce. Wallet messages carry it on a "Nonce:" line.
	RequireNonce bool
}

// Service handles authentication business logic.
type Service struct {
	logger       *logging.ColoredLogger
	verifier     wallet.Verifier
	issuer       *token.Issuer
	rotator      *refresh.Rotator
	users        users.Store
	links        *pending.Coordinator
	nonces       *pending.NonceRegistry
	social       *social.Verifier
	admins       map[string]bool
	storeTimeout time.Duration
	requireNonce bool
}

func NewService(deps Deps) (*Service, error) {
	switch {
	case deps.Issuer == nil:
		return nil, fmt.Errorf("auth service: token issuer is required")
	case deps.Rotator == nil:
		return nil, fmt.Errorf("auth service: refresh rotator is required")
	case deps.Users == nil:
		return nil, fmt.Errorf("auth service: account store is required")
	case deps.Links == nil:
		return nil, fmt.Errorf("auth service: pending link coordinator is required")
	case deps.RequireNonce && deps.Nonces == nil:
		return nil, fmt.Errorf("auth service: nonce registry is required when nonces are enforced")
	}

	s := &Service{
		logger:       deps.Logger,
		verifier:     deps.Verifier,
		issuer:       deps.Issuer,
		rotator:      deps.Rotator,
		users:        deps.Users,
		links:        deps.Links,
		nonces:       deps.Nonces,
		social:       deps.Social,
		admins:       make(map[string]bool, len(deps.Admins)),
		storeTimeout: deps.StoreTimeout,
		requireNonce: deps.RequireNonce,
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.verifier == nil {
		s.verifier = wallet.PersonalSignVerifier{}
	}
	if s.storeTimeout <= 0 {
		s.storeTimeout = refresh.DefaultTimeout
	}
	for _, a := range deps.Admins {
		s.admins[wallet.Normalize(a)] = true
	}
	return s, nil
}

// Login verifies a personal_sign signature over message and opens a new session family.
func (s *Service) Login(ctx context.Context, address, signature, message string) (*Session, error) {
	if !wallet.IsAddress(address) {
		return nil, apperrors.NewUnauthorizedError(MsgAuthFailed)
	}
	address = wallet.Normalize(address)
	if !s.verifier.Verify(address, signature, message) {
		s.logger.ComponentDebug(logging.ComponentAuth, "Wallet signature rejected", zap.String("address", address))
		return nil, apperrors.NewUnauthorizedError(MsgAuthFailed)
	}
	if err := s.consumeNonce(ctx, wallet.MessageNonce(message), MsgAuthFailed); err != nil {
		return nil, err
	}

	acct, err := s.ensureAccount(ctx, address)
	if err != nil {
		return nil, err
	}
	sess, err := s.openSession(ctx, acct)
	if err != nil {
		return nil, err
	}
	s.logger.ComponentInfo(logging.ComponentAuth, "Wallet login", zap.String("address", address))
	return sess, nil
}

// Refresh rotates presented and returns a fresh session for the record owner.
func (s *Service) Refresh(ctx context.Context, presented string) (*Session, error) {
	next, err := s.rotator.Rotate(ctx, presented)
	if err != nil {
		switch {
		case errors.Is(err, refresh.ErrReuseDetected):
			return nil, apperrors.NewSecurityAlertError(MsgReuseDetected, err)
		case errors.Is(err, refresh.ErrNotFound):
			return nil, apperrors.NewUnauthorizedError(MsgInvalidRefresh)
		case errors.Is(err, refresh.ErrExpired):
			return nil, apperrors.NewUnauthorizedError(MsgRefreshExpired)
		default:
			return nil, apperrors.NewServiceError("refresh store", "", err)
		}
	}

	role := users.RoleUser
	acct, err := s.getAccount(ctx, next.OwnerAddress)
	switch {
	case err == nil:
		role = acct.Role
	case errors.Is(err, users.ErrNotFound):
		s.logger.ComponentWarn(logging.ComponentAuth, "Refresh token owner has no account; issuing user role",
			zap.String("address", next.OwnerAddress))
	default:
		return nil, storeError("account store", err)
	}

	access, err := s.issuer.Issue(next.OwnerAddress, role)
	if err != nil {
		return nil, apperrors.NewInternalError("", err).WithOperation("issue access token")
	}
	return &Session{
		Address:          next.OwnerAddress,
		Role:             role,
		AccessToken:      access.Token,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshToken:     next.Token,
		RefreshExpiresAt: next.ExpiresAt,
	}, nil
}

// IssueNonce returns a single-use nonce for a signed sign-in or link message.
func (s *Service) IssueNonce(ctx context.Context) (string, time.Time, error) {
	if s.nonces == nil {
		return "", time.Time{}, apperrors.NewServiceError("nonce registry", "", fmt.Errorf("nonce registry not configured"))
	}
	nonce, exp, err := s.nonces.Issue(ctx)
	if err != nil {
		return "", time.Time{}, apperrors.NewServiceError("pending cache", "", err)
	}
	return nonce, exp, nil
}

// SocialVerify checks a Farcaster proof. A known identity gets a session; an unknown one
// gets a pending link, or a fresh account bound to the custody address when SkipLink is set.
func (s *Service) SocialVerify(ctx context.Context, req SocialRequest) (*SocialResult, error) {
	if s.social == nil {
		return nil, apperrors.NewUnauthorizedError(MsgInvalidSocialProof).WithDetail("social sign-in is not enabled")
	}

	proof, err := s.social.Verify(ctx, social.Request{Message: req.Message, Signature: req.Signature, Nonce: req.Nonce})
	if err != nil {
		if errors.Is(err, social.ErrResolverUnavailable) {
			return nil, apperrors.NewServiceError("social resolver", "", err)
		}
		s.logger.ComponentDebug(logging.ComponentSocial, "Social proof rejected", zap.Error(err))
		return nil, apperrors.NewUnauthorizedError(MsgInvalidSocialProof).WithCause(err)
	}

	if err := s.consumeNonce(ctx, proof.Nonce, MsgInvalidSocialProof); err != nil {
		return nil, err
	}

	candidates := append([]string{proof.CustodyAddress}, proof.VerifiedAddresses...)
	acct, err := s.findForSocial(ctx, proof.FID, candidates...)
	switch {
	case err == nil:
		if err := s.attachSocial(ctx, acct, proof.FID); err != nil {
			return nil, err
		}
		sess, err := s.openSession(ctx, acct)
		if err != nil {
			return nil, err
		}
		s.logger.ComponentInfo(logging.ComponentSocial, "Social login",
			zap.Int64("fid", proof.FID), zap.String("address", acct.Address))
		return &SocialResult{Linked: true, FID: proof.FID, Session: sess}, nil

	case !errors.Is(err, users.ErrNotFound):
		return nil, storeError("account store", err)
	}

	if req.SkipLink {
		fid := proof.FID
		acct, err := s.upsertAccount(ctx, users.Account{
			Address:        proof.CustodyAddress,
			Role:           s.roleFor(proof.CustodyAddress),
			LinkedSocialID: &fid,
		})
		if err != nil {
			return nil, err
		}
		sess, err := s.openSession(ctx, acct)
		if err != nil {
			return nil, err
		}
		s.logger.ComponentInfo(logging.ComponentSocial, "Social account created for custody address",
			zap.Int64("fid", proof.FID), zap.String("address", acct.Address))
		return &SocialResult{Linked: true, FID: proof.FID, Session: sess}, nil
	}

	link, err := s.links.Open(ctx, proof.FID, proof.CustodyAddress, proof.VerifiedAddresses...)
	if err != nil {
		return nil, apperrors.NewServiceError("pending cache", "", err)
	}
	return &SocialResult{
		FID:              proof.FID,
		PendingLinkToken: link.Token,
		PendingExpiresAt: link.ExpiresAt,
	}, nil
}

// FinalizeLink consumes a pending link and binds its social id to the wallet that signed
// message.
func (s *Service) FinalizeLink(ctx context.Context, linkToken, address, signature, message string) (*Session, error) {
	link, err := s.links.Consume(ctx, linkToken)
	if err != nil {
		if errors.Is(err, pending.ErrLinkNotFound) {
			return nil, apperrors.NewUnauthorizedError(MsgInvalidLinkToken)
		}
		return nil, apperrors.NewServiceError("pending cache", "", err)
	}

	if !wallet.IsAddress(address) {
		return nil, apperrors.NewUnauthorizedError(MsgAuthFailed)
	}
	address = wallet.Normalize(address)
	if !s.verifier.Verify(address, signature, message) {
		return nil, apperrors.NewUnauthorizedError(MsgAuthFailed)
	}
	if err := s.consumeNonce(ctx, wallet.MessageNonce(message), MsgAuthFailed); err != nil {
		return nil, err
	}

	acct, err := s.ensureAccount(ctx, address)
	if err != nil {
		return nil, err
	}
	if err := s.attachSocial(ctx, acct, link.SocialID); err != nil {
		return nil, err
	}
	sess, err := s.openSession(ctx, acct)
	if err != nil {
		return nil, err
	}
	s.logger.ComponentInfo(logging.ComponentSocial, "Social identity linked",
		zap.Int64("fid", link.SocialID), zap.String("address", address))
	return sess, nil
}

// Logout revokes the family of the presented refresh token.
func (s *Service) Logout(ctx context.Context, presented string) error {
	if err := s.rotator.Revoke(ctx, presented); err != nil {
		if errors.Is(err, refresh.ErrNotFound) {
			return apperrors.NewUnauthorizedError(MsgInvalidRefresh)
		}
		return apperrors.NewServiceError("refresh store", "", err)
	}
	return nil
}

// LogoutAll revokes every refresh token of address.
func (s *Service) LogoutAll(ctx context.Context, address string) (int64, error) {
	n, err := s.rotator.RevokeAll(ctx, wallet.Normalize(address))
	if err != nil {
		return 0, apperrors.NewServiceError("refresh store", "", err)
	}
	s.logger.ComponentInfo(logging.ComponentAuth, "All sessions revoked",
		zap.String("address", address), zap.Int64("tokens", n))
	return n, nil
}

// Account returns the account of address.
func (s *Service) Account(ctx context.Context, address string) (*users.Account, error) {
	acct, err := s.getAccount(ctx, wallet.Normalize(address))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("account", "")
		}
		return nil, storeError("account store", err)
	}
	return acct, nil
}

// ValidateAccessToken checks a bearer token.
func (s *Service) ValidateAccessToken(raw string) (*token.Claims, error) {
	return s.issuer.Validate(raw)
}

func (s *Service) openSession(ctx context.Context, acct *users.Account) (*Session, error) {
	access, err := s.issuer.Issue(acct.Address, acct.Role)
	if err != nil {
		return nil, apperrors.NewInternalError("", err).WithOperation("issue access token")
	}
	rec, err := s.rotator.Issue(ctx, acct.Address)
	if err != nil {
		return nil, apperrors.NewServiceError("refresh store", "", err)
	}
	return &Session{
		Address:          acct.Address,
		Role:             acct.Role,
		AccessToken:      access.Token,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshToken:     rec.Token,
		RefreshExpiresAt: rec.ExpiresAt,
	}, nil
}

// attachSocial links fid to acct unless it already is. An account linked to another fid, or
// a fid owned by another account, is a conflict.
func (s *Service) attachSocial(ctx context.Context, acct *users.Account, fid int64) error {
	if acct.LinkedSocialID != nil {
		if *acct.LinkedSocialID == fid {
			return nil
		}
		return apperrors.NewConflictError("social link", MsgWalletAlreadyLinked)
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.users.LinkSocialID(ctx, acct.Address, fid); err != nil {
		switch {
		case errors.Is(err, users.ErrSocialIDTaken):
			return apperrors.NewConflictError("social link", MsgSocialAlreadyLinked)
		case errors.Is(err, users.ErrAlreadyLinked):
			return apperrors.NewConflictError("social link", MsgWalletAlreadyLinked)
		}
		return storeError("account store", err)
	}
	id := fid
	acct.LinkedSocialID = &id
	return nil
}

// consumeNonce spends nonce when nonces are enforced. A missing, reused or expired nonce is
// a 401 carrying reject.
func (s *Service) consumeNonce(ctx context.Context, nonce, reject string) error {
	if !s.requireNonce {
		return nil
	}
	if err := s.nonces.Consume(ctx, nonce); err != nil {
		if errors.Is(err, pending.ErrNonceNotFound) {
			return apperrors.NewUnauthorizedError(reject).WithCause(err)
		}
		return apperrors.NewServiceError("pending cache", "", err)
	}
	return nil
}

// storeError maps a failed store call to a 500-class error, keeping deadline overruns
// distinct in logs.
func storeError(service string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError(service, err)
	}
	return apperrors.NewServiceError(service, "", err)
}

func (s *Service) roleFor(address string) string {
	if s.admins[address] {
		return users.RoleAdmin
	}
	return users.RoleUser
}

func (s *Service) ensureAccount(ctx context.Context, address string) (*users.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	acct, err := users.Ensure(ctx, s.users, address, s.roleFor(address))
	if err != nil {
		return nil, storeError("account store", err)
	}
	return acct, nil
}

func (s *Service) upsertAccount(ctx context.Context, acct users.Account) (*users.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	out, err := s.users.CreateOrUpdate(ctx, acct)
	if err != nil {
		if errors.Is(err, users.ErrSocialIDTaken) {
			return nil, apperrors.NewConflictError("social link", MsgSocialAlreadyLinked)
		}
		return nil, storeError("account store", err)
	}
	return out, nil
}

func (s *Service) getAccount(ctx context.Context, address string) (*users.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.users.GetByAddress(ctx, address)
}

func (s *Service) findForSocial(ctx context.Context, fid int64, candidates ...string) (*users.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return users.FindForSocial(ctx, s.users, fid, candidates...)
}
