package eligibility

import (
	"net/netip"
	"strings"

	"github.com/mssola/useragent"

	"resume-optimizer/internal/usage"
)

// Identity describes the requester of one call. It is immutable once built.
type Identity struct {
	Email     string
	IPAddress string
	UserAgent string
	Referrer  string
}

// NewIdentity normalizes the raw request values. The IP keeps its textual
// form when it does not parse so signals can still be recorded against it.
func NewIdentity(email, ip, userAgent, referrer string) Identity {
	ip = strings.TrimSpace(ip)
	if addr, err := netip.ParseAddr(ip); err == nil {
		ip = addr.Unmap().String()
	}
	return Identity{
		Email:     usage.NormalizeEmail(email),
		IPAddress: ip,
		UserAgent: strings.TrimSpace(userAgent),
		Referrer:  strings.TrimSpace(referrer),
	}
}

// Domain returns the lower-cased part after the last "@", or "".
func (id Identity) Domain() string {
	i := strings.LastIndexByte(id.Email, '@')
	if i < 0 || i == len(id.Email)-1 {
		return ""
	}
	return strings.TrimSuffix(id.Email[i+1:], ".")
}

// Addr returns the parsed IP address.
func (id Identity) Addr() (netip.Addr, bool) {
	addr, err := netip.ParseAddr(id.IPAddress)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

// Device classes derived from the user agent.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
	DeviceUnknown = "unknown"
)

// scriptedClients are HTTP libraries the parser reports as browsers.
var scriptedClients = []string{"curl/", "wget/", "python-requests", "go-http-client", "okhttp/"}

func (id Identity) parsed() *useragent.UserAgent {
	return useragent.New(id.UserAgent)
}

// DeviceClass classifies the user agent.
func (id Identity) DeviceClass() string {
	if id.UserAgent == "" {
		return DeviceUnknown
	}
	ua := id.parsed()
	lower := strings.ToLower(id.UserAgent)
	if ua.Bot() || containsAny(lower, "bot", "crawler", "spider") || containsAny(lower, scriptedClients...) {
		return DeviceBot
	}

	platform := ua.Platform()
	android := ua.OSInfo().Name == "Android" || strings.Contains(lower, "android")
	switch {
	case platform == "iPad" || strings.Contains(lower, "tablet"):
		return DeviceTablet
	case android && !strings.Contains(id.UserAgent, "Mobile"):
		return DeviceTablet
	case ua.Mobile() || android || platform == "iPhone" || platform == "iPod":
		return DeviceMobile
	default:
		return DeviceDesktop
	}
}

// BrowserFamily returns a coarse browser name derived from the parsed
// browser: edge, opera, firefox, chrome, safari or other.
func (id Identity) BrowserFamily() string {
	if id.UserAgent == "" {
		return "unknown"
	}
	name, _ := id.parsed().Browser()
	name = strings.ToLower(name)
	switch {
	case strings.Contains(name, "edge"):
		return "edge"
	case strings.Contains(name, "opera"):
		return "opera"
	case strings.Contains(name, "firefox"):
		return "firefox"
	case strings.Contains(name, "chrom"):
		return "chrome"
	case name == "safari":
		return "safari"
	default:
		return "other"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
