package eligibility

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// MatchType selects how a whitelist entry matches a requester.
type MatchType string

const (
	MatchEmail   MatchType = "email"
	MatchDomain  MatchType = "domain"
	MatchIPRange MatchType = "ip_range"
)

// WhitelistEntry grants a requester a custom allowance. A nil FreeAllowance
// is unlimited.
type WhitelistEntry struct {
	ID              string    `json:"id"`
	MatchType       MatchType `json:"matchType"`
	MatchValue      string    `json:"matchValue"`
	FreeAllowance   *int      `json:"freeAllowance"`
	DiscountPercent int       `json:"discountPercent"`
	PremiumAccess   bool      `json:"premiumAccess"`
	AccountTag      string    `json:"accountTag"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Unlimited reports whether the entry grants unlimited free generations.
func (e WhitelistEntry) Unlimited() bool {
	return e.FreeAllowance == nil
}

// Limit returns the allowance as a ledger limit.
func (e WhitelistEntry) Limit() int {
	if e.FreeAllowance == nil {
		return -1
	}
	return *e.FreeAllowance
}

// Normalize validates the entry and canonicalizes its match value.
func (e WhitelistEntry) Normalize() (WhitelistEntry, error) {
	v := strings.ToLower(strings.TrimSpace(e.MatchValue))
	switch e.MatchType {
	case MatchEmail:
		if !strings.Contains(v, "@") {
			return e, fmt.Errorf("%w: email entry needs an address", ErrInvalidEntry)
		}
	case MatchDomain:
		v = strings.TrimPrefix(strings.TrimPrefix(v, "@"), "*.")
		v = strings.TrimSuffix(v, ".")
		if v == "" || strings.ContainsAny(v, "@/ ") {
			return e, fmt.Errorf("%w: invalid domain %q", ErrInvalidEntry, e.MatchValue)
		}
		if suffix, icann := publicsuffix.PublicSuffix(v); icann && suffix == v {
			return e, fmt.Errorf("%w: %q is a public suffix", ErrInvalidEntry, v)
		}
	case MatchIPRange:
		p, err := parseRange(v)
		if err != nil {
			return e, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
		}
		v = p.String()
	default:
		return e, fmt.Errorf("%w: unknown match type %q", ErrInvalidEntry, e.MatchType)
	}
	if e.FreeAllowance != nil && *e.FreeAllowance < 0 {
		return e, fmt.Errorf("%w: negative allowance", ErrInvalidEntry)
	}
	if e.DiscountPercent < 0 || e.DiscountPercent > 100 {
		return e, fmt.Errorf("%w: discount must be between 0 and 100", ErrInvalidEntry)
	}
	e.MatchValue = v
	return e, nil
}

// parseRange accepts a CIDR or a single address.
func parseRange(v string) (netip.Prefix, error) {
	if strings.Contains(v, "/") {
		p, err := netip.ParsePrefix(v)
		if err != nil {
			return netip.Prefix{}, err
		}
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(v)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// domainCandidates lists the domain and its parents, longest first, stopping
// at the registrable domain so a suffix like "co.uk" never matches.
func domainCandidates(domain string) []string {
	domain = strings.TrimSuffix(strings.ToLower(domain), ".")
	if domain == "" {
		return nil
	}
	root, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		return []string{domain}
	}
	out := []string{domain}
	for d := domain; d != root; {
		i := strings.IndexByte(d, '.')
		if i < 0 {
			break
		}
		d = d[i+1:]
		out = append(out, d)
	}
	return out
}

// bestRange returns the entry whose range contains addr with the longest prefix.
func bestRange(entries []WhitelistEntry, addr netip.Addr) (WhitelistEntry, bool) {
	var best WhitelistEntry
	bestBits := -1
	for _, e := range entries {
		p, err := parseRange(e.MatchValue)
		if err != nil || !p.Contains(addr) {
			continue
		}
		if p.Bits() > bestBits {
			best, bestBits = e, p.Bits()
		}
	}
	return best, bestBits >= 0
}

// bestDomain returns the entry matching the longest candidate.
func bestDomain(entries []WhitelistEntry, candidates []string) (WhitelistEntry, bool) {
	byValue := make(map[string]WhitelistEntry, len(entries))
	for _, e := range entries {
		byValue[e.MatchValue] = e
	}
	for _, c := range candidates {
		if e, ok := byValue[c]; ok {
			return e, true
		}
	}
	return WhitelistEntry{}, false
}
