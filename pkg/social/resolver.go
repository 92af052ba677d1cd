package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/DeBrosOfficial/walletauth/pkg/wallet"
)

// ErrResolverUnavailable wraps transport and upstream failures of an AddressResolver.
var ErrResolverUnavailable = errors.New("social resolver unavailable")

// AddressResolver looks up on-chain facts about a Farcaster account.
type AddressResolver interface {
	// VerifiedAddresses returns the Ethereum addresses the account has verified.
	VerifiedAddresses(ctx context.Context, fid int64) ([]string, error)
	// CustodyFID returns the fid owned by custody, or 0 if it owns none.
	CustodyFID(ctx context.Context, custody string) (int64, error)
}

// HubResolver queries a Farcaster hub HTTP API (/v1/verificationsByFid and
// /v1/onChainIdRegistryEventByAddress).
type HubResolver struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHubResolver creates a resolver for the hub at baseURL. apiKey, when set, is sent as
// the x-api-key header used by hosted hubs.
func NewHubResolver(baseURL, apiKey string, timeout time.Duration) *HubResolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HubResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type hubVerificationsResponse struct {
	Messages []struct {
		Data struct {
			VerificationAddAddressBody *struct {
				Address  string `json:"address"`
				Protocol string `json:"protocol"`
			} `json:"verificationAddAddressBody"`
			// Older hubs use this name.
			VerificationAddEthAddressBody *struct {
				Address string `json:"address"`
			} `json:"verificationAddEthAddressBody"`
		} `json:"data"`
	} `json:"messages"`
}

func (r *HubResolver) VerifiedAddresses(ctx context.Context, fid int64) ([]string, error) {
	var resp hubVerificationsResponse
	q := url.Values{"fid": {strconv.FormatInt(fid, 10)}}
	found, err := r.get(ctx, "/v1/verificationsByFid", q, &resp)
	if err != nil || !found {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []string
	for _, m := range resp.Messages {
		var addr string
		switch {
		case m.Data.VerificationAddAddressBody != nil:
			body := m.Data.VerificationAddAddressBody
			if body.Protocol != "" && body.Protocol != "PROTOCOL_ETHEREUM" {
				continue
			}
			addr = body.Address
		case m.Data.VerificationAddEthAddressBody != nil:
			addr = m.Data.VerificationAddEthAddressBody.Address
		}
		if !wallet.IsAddress(addr) {
			continue
		}
		addr = wallet.Normalize(addr)
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out, nil
}

func (r *HubResolver) CustodyFID(ctx context.Context, custody string) (int64, error) {
	var resp struct {
		FID int64 `json:"fid"`
	}
	q := url.Values{"address": {wallet.Normalize(custody)}}
	found, err := r.get(ctx, "/v1/onChainIdRegistryEventByAddress", q, &resp)
	if err != nil || !found {
		return 0, err
	}
	return resp.FID, nil
}

// get decodes a JSON response into out. A 404 reports found=false without error.
func (r *HubResolver) get(ctx context.Context, path string, q url.Values, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("%w: build request: %v", ErrResolverUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("x-api-key", r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrResolverUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: %s returned %d", ErrResolverUnavailable, path, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return false, fmt.Errorf("%w: decode %s: %v", ErrResolverUnavailable, path, err)
	}
	return true, nil
}
