// Package social verifies Sign-In-With-Farcaster proofs: an EIP-4361 message signed by the
// custody address of a Farcaster account and carrying a farcaster://fid/<n> resource.
package social

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/DeBrosOfficial/walletauth/pkg/wallet"
)

const (
	headerSuffix   = " wants you to sign in with your Ethereum account:"
	fidResourceTag = "farcaster://fid/"
)

// ErrMalformedMessage is returned when a message does not follow the EIP-4361 layout.
var ErrMalformedMessage = errors.New("malformed sign-in message")

// Message is a parsed EIP-4361 sign-in message.
type Message struct {
	Domain         string
	Address        string
	Statement      string
	URI            string
	Version        string
	ChainID        int64
	Nonce          string
	IssuedAt       time.Time
	ExpirationTime *time.Time
	NotBefore      *time.Time
	RequestID      string
	Resources      []string
}

// ParseMessage parses raw into a Message. Only structure is checked here; Verifier applies
// the semantic rules.
func ParseMessage(raw string) (*Message, error) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	if len(lines) < 3 {
		return nil, fmt.Errorf("%w: too short", ErrMalformedMessage)
	}

	m := &Message{}
	if !strings.HasSuffix(lines[0], headerSuffix) {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedMessage)
	}
	m.Domain = strings.TrimSuffix(lines[0], headerSuffix)
	if m.Domain == "" {
		return nil, fmt.Errorf("%w: empty domain", ErrMalformedMessage)
	}
	m.Address = strings.TrimSpace(lines[1])
	if !wallet.IsAddress(m.Address) {
		return nil, fmt.Errorf("%w: invalid address", ErrMalformedMessage)
	}

	i := 2
	// Optional statement block: blank line, statement, blank line.
	if i < len(lines) && lines[i] == "" {
		i++
		if i < len(lines) && lines[i] != "" && !strings.HasPrefix(lines[i], "URI: ") {
			m.Statement = lines[i]
			i++
			if i < len(lines) && lines[i] == "" {
				i++
			}
		}
	}

	inResources := false
	for ; i < len(lines); i++ {
		line := lines[i]
		if line == "" {
			continue
		}
		if inResources {
			if strings.HasPrefix(line, "- ") {
				m.Resources = append(m.Resources, strings.TrimPrefix(line, "- "))
				continue
			}
			inResources = false
		}
		if line == "Resources:" {
			inResources = true
			continue
		}

		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			return nil, fmt.Errorf("%w: unexpected line %q", ErrMalformedMessage, line)
		}
		var err error
		switch key {
		case "URI":
			m.URI = value
		case "Version":
			m.Version = value
		case "Chain ID":
			m.ChainID, err = strconv.ParseInt(value, 10, 64)
		case "Nonce":
			m.Nonce = value
		case "Issued At":
			m.IssuedAt, err = parseTime(value)
		case "Expiration Time":
			var t time.Time
			if t, err = parseTime(value); err == nil {
				m.ExpirationTime = &t
			}
		case "Not Before":
			var t time.Time
			if t, err = parseTime(value); err == nil {
				m.NotBefore = &t
			}
		case "Request ID":
			m.RequestID = value
		default:
			return nil, fmt.Errorf("%w: unknown field %q", ErrMalformedMessage, key)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, key, err)
		}
	}

	switch {
	case m.URI == "":
		return nil, fmt.Errorf("%w: missing URI", ErrMalformedMessage)
	case m.Version != "1":
		return nil, fmt.Errorf("%w: unsupported version %q", ErrMalformedMessage, m.Version)
	case m.Nonce == "":
		return nil, fmt.Errorf("%w: missing nonce", ErrMalformedMessage)
	case m.IssuedAt.IsZero():
		return nil, fmt.Errorf("%w: missing issued-at", ErrMalformedMessage)
	}
	return m, nil
}

// FID returns the Farcaster id named by the message's farcaster://fid/<n> resource.
func (m *Message) FID() (int64, error) {
	for _, r := range m.Resources {
		if !strings.HasPrefix(r, fidResourceTag) {
			continue
		}
		fid, err := strconv.ParseInt(strings.TrimPrefix(r, fidResourceTag), 10, 64)
		if err != nil || fid <= 0 {
			return 0, fmt.Errorf("%w: invalid fid resource %q", ErrMalformedMessage, r)
		}
		return fid, nil
	}
	return 0, fmt.Errorf("%w: missing fid resource", ErrMalformedMessage)
}

// String renders the message in canonical EIP-4361 form.
func (m *Message) String() string {
	var b strings.Builder
	b.WriteString(m.Domain + headerSuffix + "\n")
	b.WriteString(m.Address + "\n")
	b.WriteString("\n")
	if m.Statement != "" {
		b.WriteString(m.Statement + "\n\n")
	}
	b.WriteString("URI: " + m.URI + "\n")
	b.WriteString("Version: " + m.Version + "\n")
	b.WriteString("Chain ID: " + strconv.FormatInt(m.ChainID, 10) + "\n")
	b.WriteString("Nonce: " + m.Nonce + "\n")
	b.WriteString("Issued At: " + m.IssuedAt.UTC().Format(time.RFC3339Nano))
	if m.ExpirationTime != nil {
		b.WriteString("\nExpiration Time: " + m.ExpirationTime.UTC().Format(time.RFC3339Nano))
	}
	if m.NotBefore != nil {
		b.WriteString("\nNot Before: " + m.NotBefore.UTC().Format(time.RFC3339Nano))
	}
	if m.RequestID != "" {
		b.WriteString("\nRequest ID: " + m.RequestID)
	}
	if len(m.Resources) > 0 {
		b.WriteString("\nResources:")
		for _, r := range m.Resources {
			b.WriteString("\n- " + r)
		}
	}
	return b.String()
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
