package wallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the size of an r || s || v secp256k1 signature.
const SignatureLength = crypto.SignatureLength

var (
	ErrMalformedSignature = errors.New("malformed signature")
	ErrRecoveryFailed     = errors.New("signature recovery failed")
)

// Verifier checks that a message was signed by a claimed wallet.
type Verifier interface {
	Verify(address, signature, message string) bool
}

// PersonalSignVerifier implements Verifier for the personal_sign scheme.
type PersonalSignVerifier struct{}

// Verify reports whether signature over message recovers to address. It never panics and
// never returns an error: every malformed input is simply false.
func (PersonalSignVerifier) Verify(address, signature, message string) bool {
	return Verify(address, signature, message)
}

// Verify is the package-level form of PersonalSignVerifier.Verify.
func Verify(address, signature, message string) bool {
	if !IsAddress(address) {
		return false
	}
	recovered, err := Recover(signature, message)
	if err != nil {
		return false
	}
	return Equal(recovered, address)
}

// Recover returns the lowercase address that produced signature over message. The
// signature is hex (with or without 0x); V may be 0/1 or 27/28.
func Recover(signature, message string) (string, error) {
	sig, err := decodeSignature(signature)
	if err != nil {
		return "", err
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecoveryFailed, err)
	}
	return Normalize(crypto.PubkeyToAddress(*pub).Hex()), nil
}

func decodeSignature(signature string) ([]byte, error) {
	sigHex := strings.TrimSpace(signature)
	if strings.HasPrefix(sigHex, "0x") || strings.HasPrefix(sigHex, "0X") {
		sigHex = sigHex[2:]
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return nil, fmt.Errorf("%w: not hex", ErrMalformedSignature)
	}
	if len(sig) != SignatureLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedSignature, SignatureLength, len(sig))
	}

	switch v := sig[crypto.RecoveryIDOffset]; v {
	case 0, 1:
	case 27, 28:
		sig[crypto.RecoveryIDOffset] = v - 27
	default:
		return nil, fmt.Errorf("%w: invalid recovery id %d", ErrMalformedSignature, v)
	}
	return sig, nil
}

// SignPersonal produces a personal_sign signature (V = 27/28) with key. Clients normally
// sign in the browser; this is used by tooling and tests.
func SignPersonal(key *ecdsa.PrivateKey, message string) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		return "", err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return "0x" + hex.EncodeToString(sig), nil
}

// MessageNonce returns the value of the first "Nonce:" line of a signed message, the field
// EIP-4361 messages use. It is empty when the message carries none.
func MessageNonce(message string) string {
	for _, line := range strings.Split(message, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "Nonce:"); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
