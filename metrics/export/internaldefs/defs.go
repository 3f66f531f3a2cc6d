package internaldefs

import (
	"github.com/wordleapi/wordauth"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   wordauth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   wordauth.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: wordauth.MetricIssueSuccess, Name: "wordauth_issue_success_total", Help: "Tokens issued."},
	{ID: wordauth.MetricIssueFailure, Name: "wordauth_issue_failure_total", Help: "Rejected token issue requests."},
	{ID: wordauth.MetricIssueMissingInput, Name: "wordauth_issue_missing_input_total", Help: "Issue requests without username or password."},
	{ID: wordauth.MetricIssueUserNotFound, Name: "wordauth_issue_user_not_found_total", Help: "Issue requests for unknown usernames."},
	{ID: wordauth.MetricIssueInvalidCredentials, Name: "wordauth_issue_invalid_credentials_total", Help: "Issue requests with a wrong password."},
	{ID: wordauth.MetricVerifySuccess, Name: "wordauth_verify_success_total", Help: "Tokens that verified."},
	{ID: wordauth.MetricVerifyInvalidSignature, Name: "wordauth_verify_invalid_signature_total", Help: "Tokens rejected for a bad signature."},
	{ID: wordauth.MetricVerifyInvalidIssuerOrAudience, Name: "wordauth_verify_invalid_issuer_or_audience_total", Help: "Tokens rejected for a foreign issuer or audience."},
	{ID: wordauth.MetricVerifyExpired, Name: "wordauth_verify_expired_total", Help: "Expired tokens."},
	{ID: wordauth.MetricVerifyMalformed, Name: "wordauth_verify_malformed_total", Help: "Missing or undecodable tokens."},
	{ID: wordauth.MetricAccessGranted, Name: "wordauth_access_granted_total", Help: "Requirements met."},
	{ID: wordauth.MetricAccessForbidden, Name: "wordauth_access_forbidden_total", Help: "Requirements not met by a valid token."},
	{ID: wordauth.MetricUnknownPolicy, Name: "wordauth_unknown_policy_total", Help: "Requirements naming an unregistered policy."},
}

var HistogramDefs = []HistogramDef{
	{ID: wordauth.MetricVerifyLatency, Name: "wordauth_verify_latency_seconds", Help: "Token verification latency."},
}

// AuditDroppedName and AuditDroppedHelp describe the dispatcher drop counter,
// which is read from the engine rather than the snapshot.
const (
	AuditDroppedName = "wordauth_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramUpperBounds are the finite bucket upper bounds in seconds,
// matching the engine's 1ms..100ms buckets.
var HistogramUpperBounds = []float64{0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1}

// HistogramBoundSuffix names each bucket for instrument names; the last one
// is +Inf.
var HistogramBoundSuffix = []string{
	"0_001",
	"0_002",
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"inf",
}

// NormalizeBuckets pads or truncates raw to eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
