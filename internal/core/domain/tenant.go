package domain

import "time"

// UsageMetric names a billable counter tracked per tenant per month.
type UsageMetric string

const (
	UsageMetricEmailsSent UsageMetric = "emails_sent"
	UsageMetricSMSSent    UsageMetric = "sms_sent"
)

// Plan is a tenant's subscription tier with monthly ceilings.
// Zero means the metric is not available on the plan; a negative limit
// means unlimited.
type Plan struct {
	Name         string `json:"name"`
	EmailMonthly int    `json:"email_monthly"`
	SMSMonthly   int    `json:"sms_monthly"`
}

// Limit returns the monthly ceiling for a metric.
func (p Plan) Limit(metric UsageMetric) int {
	switch metric {
	case UsageMetricEmailsSent:
		return p.EmailMonthly
	case UsageMetricSMSSent:
		return p.SMSMonthly
	default:
		return 0
	}
}

// Built-in plans. Operators can override limits per tenant in storage.
var (
	PlanFree    = Plan{Name: "free", EmailMonthly: 100, SMSMonthly: 25}
	PlanStarter = Plan{Name: "starter", EmailMonthly: 2000, SMSMonthly: 500}
	PlanScale   = Plan{Name: "scale", EmailMonthly: -1, SMSMonthly: 10000}
)

// PlanByName resolves a plan name, defaulting to free.
func PlanByName(name string) Plan {
	switch name {
	case PlanStarter.Name:
		return PlanStarter
	case PlanScale.Name:
		return PlanScale
	default:
		return PlanFree
	}
}

// Tenant is the ownership and billing unit integrations are scoped to.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Plan      Plan      `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
