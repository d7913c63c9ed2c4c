package models

import "time"

// EvidenceType classifies where a piece of integration evidence comes from.
type EvidenceType string

const (
	// EvidenceEndToEndTest is a test exercising the feature end to end.
	EvidenceEndToEndTest EvidenceType = "end-to-end-test"
	// EvidenceManualVerification is a written record of a manual check.
	EvidenceManualVerification EvidenceType = "manual-verification"
	// EvidenceAutomatedCheck is a CI workflow or unit-level test.
	EvidenceAutomatedCheck EvidenceType = "automated-check"
)

// VerificationStatus is the state of one piece of evidence.
type VerificationStatus string

const (
	VerificationVerified          VerificationStatus = "verified"
	VerificationFailed            VerificationStatus = "failed"
	VerificationNeedsVerification VerificationStatus = "needs-verification"
	// VerificationOutdated marks evidence that was verified but has not
	// been touched within the freshness window.
	VerificationOutdated VerificationStatus = "outdated"
)

// IntegrationEvidence is one discovered artifact backing a feature's
// integration claim: a test file, a CI workflow, or a verification doc.
type IntegrationEvidence struct {
	// FeatureName is the feature the evidence belongs to.
	FeatureName string `json:"featureName"`
	// EvidenceType classifies the artifact.
	EvidenceType EvidenceType `json:"evidenceType"`
	// EvidenceLocation is the artifact's path relative to the project root.
	EvidenceLocation string `json:"evidenceLocation"`
	// LastVerified is the artifact's last modification time.
	LastVerified time.Time `json:"lastVerified"`
	// VerificationStatus is derived from the artifact's content and age.
	VerificationStatus VerificationStatus `json:"verificationStatus"`
	// RequiredFor lists the checks this evidence supports.
	RequiredFor []string `json:"requiredFor,omitempty"`
}

// OverallStatus summarizes how integrated a feature is.
type OverallStatus string

const (
	StatusFullyIntegrated     OverallStatus = "fully-integrated"
	StatusPartiallyIntegrated OverallStatus = "partially-integrated"
	StatusBroken              OverallStatus = "broken"
	StatusUnverified          OverallStatus = "unverified"
)

// ComponentIntegrationStatus scores one component of a feature.
type ComponentIntegrationStatus struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// APIIntegrationStatus scores one API endpoint of a feature.
type APIIntegrationStatus struct {
	Endpoint string  `json:"endpoint"`
	Score    float64 `json:"score"`
}

// FlowIntegrationStatus scores one flow of a feature.
type FlowIntegrationStatus struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// FeatureIntegrationStatus aggregates every integration signal for one
// feature: scored components, APIs and flows, discovered evidence, the
// derived overall status, and any blocking issues.
type FeatureIntegrationStatus struct {
	FeatureName   string                       `json:"featureName"`
	Components    []ComponentIntegrationStatus `json:"components,omitempty"`
	APIs          []APIIntegrationStatus       `json:"apis,omitempty"`
	Flows         []FlowIntegrationStatus      `json:"flows,omitempty"`
	Evidence      []IntegrationEvidence        `json:"evidence,omitempty"`
	OverallStatus OverallStatus                `json:"overallStatus"`
	Blockers      []ValidationIssue            `json:"blockers,omitempty"`
}

// AverageScore returns the mean of all component, API, and flow sub-scores,
// or 0 when the feature has none.
func (f FeatureIntegrationStatus) AverageScore() float64 {
	sum := 0.0
	n := 0
	for _, c := range f.Components {
		sum += c.Score
		n++
	}
	for _, a := range f.APIs {
		sum += a.Score
		n++
	}
	for _, fl := range f.Flows {
		sum += fl.Score
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// HasVerifiedEvidence returns true if any evidence entry is verified.
func (f FeatureIntegrationStatus) HasVerifiedEvidence() bool {
	for _, e := range f.Evidence {
		if e.VerificationStatus == VerificationVerified {
			return true
		}
	}
	return false
}

// DeriveOverallStatus computes the overall status from the average
// sub-score and whether any verified evidence exists. A feature with no
// verified evidence is unverified regardless of score.
func DeriveOverallStatus(avgScore float64, hasVerifiedEvidence bool) OverallStatus {
	if !hasVerifiedEvidence {
		return StatusUnverified
	}
	switch {
	case avgScore >= 0.9:
		return StatusFullyIntegrated
	case avgScore >= 0.7:
		return StatusPartiallyIntegrated
	default:
		return StatusBroken
	}
}
