package eligibility

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"resume-optimizer/internal/shared/metrics"
	"resume-optimizer/internal/shared/telemetry"
	"resume-optimizer/internal/templates"
	"resume-optimizer/internal/usage"
)

// Service decides whether a requester may use the free tier and reserves
// the unit atomically for a generation.
type Service struct {
	Whitelist WhitelistRepo
	Signals   SignalRepo
	Usage     *usage.Service
	// DenySeverity denies non-whitelisted requesters whose highest signal
	// severity reaches it. Zero only annotates.
	DenySeverity int
	Now          func() time.Time
}

// NewService constructs a Service.
func NewService(whitelist WhitelistRepo, signals SignalRepo, ledger *usage.Service) *Service {
	return &Service{Whitelist: whitelist, Signals: signals, Usage: ledger, Now: time.Now}
}

// CheckEligibility reports the requester's free-tier standing without
// reserving anything.
func (s *Service) CheckEligibility(ctx context.Context, id Identity) (Decision, error) {
	d, err := s.evaluate(ctx, id, false)
	if err != nil {
		return Decision{}, err
	}
	s.logDecision(id, "", d)
	return d, nil
}

// Quote is CheckEligibility for a specific template, including the payment
// offer when the template is not covered.
func (s *Service) Quote(ctx context.Context, id Identity, templateID string) (Decision, error) {
	tpl, err := templates.Get(templateID)
	if err != nil {
		return Decision{}, err
	}
	d, err := s.evaluate(ctx, id, false)
	if err != nil {
		return Decision{}, err
	}
	if d.Reason != ReasonAbuseFlagged {
		if tpl.Premium && d.PremiumAccess() {
			d.Allowed, d.Reason, d.Message = true, "", ""
		}
		if !d.Allowed {
			d.requirePayment(tpl)
		}
	}
	s.logDecision(id, tpl.ID, d)
	return d, nil
}

// Authorize evaluates the requester and, when allowed, holds one unit in the
// ledger. The check and the hold are a single atomic step in the ledger so
// two concurrent requests cannot both take the last unit. The reservation
// is nil whenever the decision is a denial.
func (s *Service) Authorize(ctx context.Context, id Identity, templateID string) (Decision, *usage.Reservation, error) {
	tpl, err := templates.Get(templateID)
	if err != nil {
		return Decision{}, nil, err
	}
	d, err := s.evaluate(ctx, id, true)
	if err != nil {
		return Decision{}, nil, err
	}
	if d.Reason == ReasonAbuseFlagged {
		s.logDecision(id, tpl.ID, d)
		return d, nil, nil
	}

	limit := d.Allowance
	if tpl.Premium && d.PremiumAccess() {
		limit = usage.Unlimited
	}
	r, acct, err := s.Usage.Reserve(ctx, id.Email, limit)
	switch {
	case err == nil:
		d.Allowed, d.Reason, d.Message = true, "", ""
		d.FreeResumesUsed = acct.FreeResumesUsed
		s.logDecision(id, tpl.ID, d)
		return d, &r, nil
	case errors.Is(err, usage.ErrLimitReached):
		d.FreeResumesUsed = acct.FreeResumesUsed
		d.requirePayment(tpl)
		s.logDecision(id, tpl.ID, d)
		return d, nil, nil
	default:
		return Decision{}, nil, fmt.Errorf("reserve usage: %w", err)
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) evaluate(ctx context.Context, id Identity, attempt bool) (Decision, error) {
	if id.Email == "" || id.Domain() == "" {
		return Decision{}, ErrInvalidIdentity
	}
	acct, err := s.Usage.Ensure(ctx, id.Email)
	if err != nil {
		return Decision{}, fmt.Errorf("ensure account: %w", err)
	}
	match, err := s.resolveWhitelist(ctx, id)
	if err != nil {
		return Decision{}, fmt.Errorf("resolve whitelist: %w", err)
	}
	signals := s.observe(ctx, id, acct, attempt)

	d := Decision{
		AccountType:     acct.AccountType,
		FreeResumesUsed: acct.FreeResumesUsed,
		Allowance:       usage.StandardFreeAllowance,
		Flagged:         acct.Flagged || len(signals) > 0,
		MaxSeverity:     maxSeverity(signals),
		PrivilegeLevel:  PrivilegeStandard,
	}
	accountType := usage.AccountTypeStandard
	if match != nil {
		d.WhitelistMatch = match
		d.WhitelistType = string(match.MatchType)
		d.Allowance = match.Limit()
		accountType = AccountTypeWhitelisted
		if match.AccountTag != "" {
			accountType = match.AccountTag
		}
		switch {
		case match.Unlimited():
			d.PrivilegeLevel = PrivilegeUnlimited
		case match.PremiumAccess:
			d.PrivilegeLevel = PrivilegePremium
		default:
			d.PrivilegeLevel = PrivilegeAllowance
		}
	}
	if accountType != acct.AccountType {
		if err := s.Usage.SetAccountType(ctx, id.Email, accountType); err != nil {
			telemetry.Warn("eligibility.account_type_failed", map[string]any{"email": id.Email, "error": err})
		}
	}
	d.AccountType = accountType

	if d.Allowance < 0 {
		d.Allowed = true
		d.Remaining = -1
	} else {
		d.Remaining = d.Allowance - d.FreeResumesUsed
		if d.Remaining < 0 {
			d.Remaining = 0
		}
		d.Allowed = d.Remaining > 0
	}
	if !d.Allowed {
		d.Reason = limitReason(match)
		d.Message = limitMessage(d)
	}
	if match == nil && s.DenySeverity > 0 && d.MaxSeverity >= s.DenySeverity {
		d.Allowed = false
		d.Reason = ReasonAbuseFlagged
		d.Message = "We could not verify this request. Please contact support."
	}
	return d, nil
}

// resolveWhitelist applies exact email > domain suffix > IP range precedence.
func (s *Service) resolveWhitelist(ctx context.Context, id Identity) (*WhitelistEntry, error) {
	if s.Whitelist == nil {
		return nil, nil
	}
	e, err := s.Whitelist.FindActiveByEmail(ctx, id.Email)
	if err == nil {
		return &e, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	candidates := domainCandidates(id.Domain())
	entries, err := s.Whitelist.FindActiveByDomains(ctx, candidates)
	if err != nil {
		return nil, err
	}
	if e, ok := bestDomain(entries, candidates); ok {
		return &e, nil
	}

	addr, ok := id.Addr()
	if !ok {
		return nil, nil
	}
	ranges, err := s.Whitelist.ListActiveIPRanges(ctx)
	if err != nil {
		return nil, err
	}
	if e, ok := bestRange(ranges, addr); ok {
		return &e, nil
	}
	return nil, nil
}

// observe records abuse signals for the requester and returns every signal
// that applies to it. Failures are logged and never block the decision.
func (s *Service) observe(ctx context.Context, id Identity, acct usage.Account, attempt bool) []Signal {
	if s.Signals == nil {
		return nil
	}
	now := s.now()
	domain := id.Domain()

	if IsDisposableDomain(domain) {
		s.raise(ctx, Signal{PatternType: PatternDisposableEmail, MatchedValue: domain, Email: id.Email, Severity: SeverityDisposableEmail, LastSeen: now})
	}
	if attempt {
		prev, err := s.Usage.Touch(ctx, id.Email, now)
		if err != nil {
			telemetry.Warn("abuse.touch_failed", map[string]any{"email": id.Email, "error": err})
		} else if gap := now.Sub(prev); !prev.IsZero() && gap >= 0 && gap < RapidRepeatWindow {
			s.raise(ctx, Signal{PatternType: PatternRapidRepeat, MatchedValue: id.Email, Email: id.Email, Severity: SeverityRapidRepeat, LastSeen: now})
		}
		if id.IPAddress != "" {
			s.checkFanout(ctx, id, now)
		}
	}

	values := []string{id.Email, domain}
	if id.IPAddress != "" {
		values = append(values, id.IPAddress)
	}
	signals, err := s.Signals.ListForValues(ctx, values)
	if err != nil {
		telemetry.Warn("abuse.list_failed", map[string]any{"email": id.Email, "error": err})
		return nil
	}
	if len(signals) > 0 && !acct.Flagged {
		if err := s.Usage.Flag(ctx, id.Email, flagReason(signals)); err != nil {
			telemetry.Warn("abuse.flag_failed", map[string]any{"email": id.Email, "error": err})
		}
	}
	return signals
}

func (s *Service) checkFanout(ctx context.Context, id Identity, now time.Time) {
	if err := s.Signals.RecordSighting(ctx, id.IPAddress, id.Email, now); err != nil {
		telemetry.Warn("abuse.sighting_failed", map[string]any{"ip": id.IPAddress, "error": err})
		return
	}
	n, err := s.Signals.DistinctEmailsForIP(ctx, id.IPAddress, now.Add(-FanoutWindow))
	if err != nil {
		telemetry.Warn("abuse.sighting_failed", map[string]any{"ip": id.IPAddress, "error": err})
		return
	}
	if n >= FanoutThreshold {
		s.raise(ctx, Signal{PatternType: PatternSharedIPFanout, MatchedValue: id.IPAddress, Email: id.Email, Severity: SeveritySharedIPFanout, LastSeen: now})
	}
}

func (s *Service) raise(ctx context.Context, sig Signal) {
	stored, err := s.Signals.Upsert(ctx, sig)
	if err != nil {
		telemetry.Warn("abuse.signal_failed", map[string]any{"pattern": sig.PatternType, "error": err})
		return
	}
	metrics.IncAbuseSignal(string(sig.PatternType))
	telemetry.Warn("abuse.signal", map[string]any{
		"pattern":     stored.PatternType,
		"value":       stored.MatchedValue,
		"email":       sig.Email,
		"severity":    stored.Severity,
		"occurrences": stored.OccurrenceCount,
	})
}

func flagReason(signals []Signal) string {
	seen := make(map[string]bool, len(signals))
	var patterns []string
	for _, s := range signals {
		p := string(s.PatternType)
		if !seen[p] {
			seen[p] = true
			patterns = append(patterns, p)
		}
	}
	sort.Strings(patterns)
	return strings.Join(patterns, ",")
}

func (s *Service) logDecision(id Identity, templateID string, d Decision) {
	metrics.IncEligibilityDecision(d.Allowed, d.Reason)
	telemetry.Info("eligibility.decision", map[string]any{
		"email":            id.Email,
		"ip":               id.IPAddress,
		"device_class":     id.DeviceClass(),
		"browser":          id.BrowserFamily(),
		"template_id":      templateID,
		"allowed":          d.Allowed,
		"reason":           d.Reason,
		"whitelist_type":   d.WhitelistType,
		"account_type":     d.AccountType,
		"free_used":        d.FreeResumesUsed,
		"requires_payment": d.RequiresPayment,
		"flagged":          d.Flagged,
		"max_severity":     d.MaxSeverity,
	})
}

// AddWhitelistEntry validates and stores a new active entry.
func (s *Service) AddWhitelistEntry(ctx context.Context, e WhitelistEntry) (WhitelistEntry, error) {
	e, err := e.Normalize()
	if err != nil {
		return WhitelistEntry{}, err
	}
	e.ID = uuid.NewString()
	e.Active = true
	e.CreatedAt = s.now()
	if err := s.Whitelist.Create(ctx, e); err != nil {
		return WhitelistEntry{}, err
	}
	telemetry.Info("whitelist.created", map[string]any{
		"id":          e.ID,
		"match_type":  e.MatchType,
		"match_value": e.MatchValue,
	})
	return e, nil
}

// ListWhitelist returns entries, newest first.
func (s *Service) ListWhitelist(ctx context.Context, includeInactive bool) ([]WhitelistEntry, error) {
	return s.Whitelist.List(ctx, includeInactive)
}

// DeactivateWhitelistEntry stops an entry from matching.
func (s *Service) DeactivateWhitelistEntry(ctx context.Context, id string) error {
	if err := s.Whitelist.Deactivate(ctx, id); err != nil {
		return err
	}
	telemetry.Info("whitelist.deactivated", map[string]any{"id": id})
	return nil
}

// ListSignals returns the most recently seen abuse signals.
func (s *Service) ListSignals(ctx context.Context, limit int) ([]Signal, error) {
	return s.Signals.List(ctx, limit)
}
