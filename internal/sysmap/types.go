// Package sysmap loads declarative system map documents and normalizes
// their two supported shapes (flat component/api arrays and nested
// feature groups) into one canonical model the validators consume.
package sysmap

import "sort"

// DocumentFormat tags which shape a document was loaded from.
type DocumentFormat string

const (
	// FormatStandard is the flat shape: top-level components, apis, flows.
	FormatStandard DocumentFormat = "standard"
	// FormatFeatureGroups is the nested shape keyed by feature group.
	FormatFeatureGroups DocumentFormat = "feature-groups"
)

// FeatureStatus is the declared integration state of a feature.
type FeatureStatus string

const (
	FeatureActive  FeatureStatus = "active"
	FeaturePartial FeatureStatus = "partial"
	FeaturePlanned FeatureStatus = "planned"
	FeatureBroken  FeatureStatus = "broken"
)

// Valid returns true if the status is a known value.
func (s FeatureStatus) Valid() bool {
	switch s {
	case FeatureActive, FeaturePartial, FeaturePlanned, FeatureBroken:
		return true
	default:
		return false
	}
}

// Component is one declared component.
type Component struct {
	// Name is the component's declared identifier.
	Name string `json:"name"`
	// Path is the declared source file, relative to the project root.
	Path string `json:"path"`
	// Type is the declared role: component, page, hook, service, route, util.
	Type string `json:"type,omitempty"`
	// Description is free-form documentation.
	Description string `json:"description,omitempty"`
	// Dependencies lists component names this one is declared to use.
	Dependencies []string `json:"dependencies,omitempty"`
}

// APIEndpoint is one declared API endpoint.
type APIEndpoint struct {
	// Method is the HTTP method in upper case.
	Method string `json:"method"`
	// Path is the endpoint path, e.g. "/api/memories".
	Path string `json:"path"`
	// HandlerFile is the declared implementing file, if any.
	HandlerFile string `json:"handlerFile,omitempty"`
	// Description is free-form documentation.
	Description string `json:"description,omitempty"`
	// RequestSchema is the declared request shape; object-typed when well formed.
	RequestSchema interface{} `json:"requestSchema,omitempty"`
	// ResponseSchema is the declared response shape.
	ResponseSchema interface{} `json:"responseSchema,omitempty"`
	// DatabaseTables lists tables the handler is declared to touch.
	DatabaseTables []string `json:"databaseTables,omitempty"`
}

// FlowStep is one step of a user flow.
type FlowStep struct {
	// Step is the step's description text.
	Step string `json:"step"`
	// Component optionally names the component the step involves.
	Component string `json:"component,omitempty"`
	// API optionally names the endpoint the step calls, e.g.
	// "POST /api/memories".
	API string `json:"api,omitempty"`
	// Action optionally names the user action, e.g. "click" or "submit".
	Action string `json:"action,omitempty"`
	// ErrorHandling optionally documents how failures are handled.
	ErrorHandling string `json:"errorHandling,omitempty"`
}

// UserFlow is one declared flow: an ordered sequence of steps.
type UserFlow struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Steps       []FlowStep `json:"steps"`
}

// CacheDependency declares the cache behavior of a mutation or feature.
type CacheDependency struct {
	// Invalidates lists cache keys the mutation must invalidate.
	Invalidates []string `json:"invalidates,omitempty"`
	// RefreshesComponents lists components that re-render on invalidation.
	RefreshesComponents []string `json:"refreshesComponents,omitempty"`
	// MissingInvalidations is a self-reported drift list; non-empty means
	// the document itself admits the chain is incomplete.
	MissingInvalidations []string `json:"missingInvalidations,omitempty"`
}

// APIIntegration describes how a feature talks to the backend.
type APIIntegration struct {
	Endpoints         []string         `json:"endpoints,omitempty"`
	CacheDependencies *CacheDependency `json:"cacheDependencies,omitempty"`
}

// Feature is one feature inside a feature group.
type Feature struct {
	// Name is the feature's key within its group.
	Name string `json:"name"`
	// Group is the owning feature group's key.
	Group string `json:"group"`
	// Description is free-form documentation.
	Description string `json:"description,omitempty"`
	// UserFlow lists the user-visible steps as plain strings.
	UserFlow []string `json:"userFlow,omitempty"`
	// SystemFlow lists the internal steps as plain strings.
	SystemFlow []string `json:"systemFlow,omitempty"`
	// Components lists component names the feature uses.
	Components []string `json:"components,omitempty"`
	// APIIntegration declares endpoints and cache behavior.
	APIIntegration *APIIntegration `json:"apiIntegration,omitempty"`
}

// FeatureGroup is a named group of features.
type FeatureGroup struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Features    map[string]Feature `json:"features"`
}

// IntegrationStatus is the declared status of one feature.
type IntegrationStatus struct {
	Status       FeatureStatus `json:"status"`
	LastVerified string        `json:"lastVerified,omitempty"`
	KnownIssues  []string      `json:"knownIssues,omitempty"`
}

// SystemMap is the canonical in-memory form of one document.
type SystemMap struct {
	// Name is the document's declared name, or its file stem.
	Name string `json:"name"`
	// Path is where the document was loaded from.
	Path string `json:"path"`
	// Format records which shape the document used.
	Format DocumentFormat `json:"format"`
	// LastUpdated is the document's self-reported timestamp, unparsed.
	LastUpdated string `json:"lastUpdated,omitempty"`
	// Dependencies lists other documents or systems this one depends on.
	Dependencies []string `json:"dependencies,omitempty"`

	Components        map[string]Component         `json:"components,omitempty"`
	APIs              []APIEndpoint                `json:"apis,omitempty"`
	Flows             []UserFlow                   `json:"flows,omitempty"`
	CacheDependencies map[string]CacheDependency   `json:"cacheDependencies,omitempty"`
	FeatureGroups     map[string]FeatureGroup      `json:"featureGroups,omitempty"`
	IntegrationStatus map[string]IntegrationStatus `json:"integrationStatus,omitempty"`
}

// ComponentNames returns declared component names in sorted order.
func (m *SystemMap) ComponentNames() []string {
	names := make([]string, 0, len(m.Components))
	for name := range m.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Features returns every feature across all groups, sorted by group then
// feature name.
func (m *SystemMap) Features() []Feature {
	var features []Feature
	groups := make([]string, 0, len(m.FeatureGroups))
	for g := range m.FeatureGroups {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, g := range groups {
		group := m.FeatureGroups[g]
		names := make([]string, 0, len(group.Features))
		for f := range group.Features {
			names = append(names, f)
		}
		sort.Strings(names)
		for _, f := range names {
			features = append(features, group.Features[f])
		}
	}
	return features
}

// DeclaredComponentSet collects every component name declared anywhere in
// the document: the top-level component map plus feature component lists.
func (m *SystemMap) DeclaredComponentSet() map[string]bool {
	set := make(map[string]bool, len(m.Components))
	for name := range m.Components {
		set[name] = true
	}
	for _, feature := range m.Features() {
		for _, name := range feature.Components {
			set[name] = true
		}
	}
	return set
}

// StatusOf returns the declared integration status for a feature name.
func (m *SystemMap) StatusOf(feature string) (IntegrationStatus, bool) {
	status, ok := m.IntegrationStatus[feature]
	return status, ok
}
