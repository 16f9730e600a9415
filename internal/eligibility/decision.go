package eligibility

import (
	"fmt"

	"resume-optimizer/internal/templates"
)

// Reason codes for a denied decision. Callers branch on these to pick the
// upsell message.
const (
	ReasonWhitelistLimitReached = "whitelist_limit_reached"
	ReasonStandardLimitReached  = "standard_limit_reached"
	ReasonAbuseFlagged          = "abuse_flagged"
	ReasonPaymentRequired       = "payment_required"
)

// Privilege levels reported to callers.
const (
	PrivilegeStandard  = "standard"
	PrivilegeAllowance = "allowance"
	PrivilegePremium   = "premium"
	PrivilegeUnlimited = "unlimited"
)

// AccountTypeWhitelisted is used when a whitelist entry carries no tag.
const AccountTypeWhitelisted = "whitelisted"

// Decision is the outcome of an eligibility check. Allowance and Remaining
// are -1 when unlimited.
type Decision struct {
	Allowed         bool            `json:"allowed"`
	Reason          string          `json:"reason,omitempty"`
	Message         string          `json:"message,omitempty"`
	WhitelistMatch  *WhitelistEntry `json:"-"`
	WhitelistType   string          `json:"whitelistType,omitempty"`
	PrivilegeLevel  string          `json:"privilegeLevel"`
	AccountType     string          `json:"accountType"`
	FreeResumesUsed int             `json:"freeResumesUsed"`
	Allowance       int             `json:"allowance"`
	Remaining       int             `json:"remaining"`
	Flagged         bool            `json:"flagged"`
	MaxSeverity     int             `json:"-"`

	RequiresPayment     bool   `json:"requiresPayment,omitempty"`
	PaymentTemplateName string `json:"paymentTemplateName,omitempty"`
	OriginalPrice       int64  `json:"-"`
	DiscountedPrice     int64  `json:"-"`
}

// PremiumAccess reports whether the whitelist match unlocks premium templates.
func (d Decision) PremiumAccess() bool {
	return d.WhitelistMatch != nil && d.WhitelistMatch.PremiumAccess
}

func (d Decision) discountPercent() int {
	if d.WhitelistMatch == nil {
		return 0
	}
	return d.WhitelistMatch.DiscountPercent
}

func limitReason(match *WhitelistEntry) string {
	if match != nil {
		return ReasonWhitelistLimitReached
	}
	return ReasonStandardLimitReached
}

func limitMessage(d Decision) string {
	if d.WhitelistMatch != nil {
		return fmt.Sprintf("You have used all %d free resumes included with your access.", d.Allowance)
	}
	return "You have used your 1 free resume for this account."
}

// requirePayment turns d into a payment offer for tpl.
func (d *Decision) requirePayment(tpl templates.Template) {
	d.Allowed = false
	d.RequiresPayment = true
	d.PaymentTemplateName = tpl.Name
	d.OriginalPrice, d.DiscountedPrice = templates.Price(tpl, d.discountPercent())
	if tpl.Premium {
		d.Reason = ReasonPaymentRequired
		d.Message = fmt.Sprintf("The %s template requires payment.", tpl.Name)
		return
	}
	if d.Reason == "" {
		d.Reason = limitReason(d.WhitelistMatch)
	}
	d.Message = limitMessage(*d)
}
