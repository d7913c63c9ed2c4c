package sysmap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"
)

// MaxDocumentSize is the largest document the loader will read. Anything
// bigger fails with an error for that document alone.
const MaxDocumentSize = 1 << 20 // 1 MiB

// LoadFile reads and normalizes one system map document. YAML documents
// are converted to JSON once and follow the same normalization path.
func LoadFile(path string) (*SystemMap, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load system map: %w", err)
	}
	if info.Size() > MaxDocumentSize {
		return nil, fmt.Errorf("load system map %s: document exceeds %d bytes", path, MaxDocumentSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load system map: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		data, err = json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	m, err := Parse(stem, data)
	if err != nil {
		return nil, err
	}
	m.Path = filepath.ToSlash(path)
	return m, nil
}

// rawDocument mirrors the loose on-disk shape. Polymorphic sections stay
// raw until normalization decides how to decode them.
type rawDocument struct {
	Name              string                       `json:"name"`
	LastUpdated       string                       `json:"lastUpdated"`
	TableOfContents   json.RawMessage              `json:"tableOfContents"`
	Dependencies      json.RawMessage              `json:"dependencies"`
	Components        json.RawMessage              `json:"components"`
	APIs              json.RawMessage              `json:"apis"`
	APIEndpoints      json.RawMessage              `json:"apiEndpoints"`
	Flows             json.RawMessage              `json:"flows"`
	UserFlows         json.RawMessage              `json:"userFlows"`
	CacheDependencies map[string]CacheDependency   `json:"cacheDependencies"`
	FeatureGroups     map[string]rawFeatureGroup   `json:"featureGroups"`
	IntegrationStatus map[string]IntegrationStatus `json:"integrationStatus"`
}

type rawFeatureGroup struct {
	Description string                `json:"description"`
	Features    map[string]rawFeature `json:"features"`
}

type rawFeature struct {
	Description    string          `json:"description"`
	UserFlow       []string        `json:"userFlow"`
	SystemFlow     []string        `json:"systemFlow"`
	Components     []string        `json:"components"`
	APIIntegration *APIIntegration `json:"apiIntegration"`
}

type rawEndpoint struct {
	Method         string      `json:"method"`
	Path           string      `json:"path"`
	Endpoint       string      `json:"endpoint"`
	HandlerFile    string      `json:"handlerFile"`
	Handler        string      `json:"handler"`
	Description    string      `json:"description"`
	RequestSchema  interface{} `json:"requestSchema"`
	ResponseSchema interface{} `json:"responseSchema"`
	DatabaseTables []string    `json:"databaseTables"`
}

type rawFlow struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Steps       []json.RawMessage `json:"steps"`
}

type rawStep struct {
	Step          string `json:"step"`
	Description   string `json:"description"`
	Component     string `json:"component"`
	API           string `json:"api"`
	Action        string `json:"action"`
	ErrorHandling string `json:"errorHandling"`
}

// Parse normalizes one JSON document into a SystemMap. A document must
// carry either featureGroups with its required companion keys, or flat
// components/apis; anything else is a schema error.
func Parse(name string, data []byte) (*SystemMap, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	m := &SystemMap{
		Name:              raw.Name,
		LastUpdated:       raw.LastUpdated,
		CacheDependencies: raw.CacheDependencies,
		IntegrationStatus: raw.IntegrationStatus,
	}
	if m.Name == "" {
		m.Name = name
	}

	m.Dependencies = decodeStringList(raw.Dependencies)

	components, err := decodeComponents(raw.Components)
	if err != nil {
		return nil, fmt.Errorf("parse %s: components: %w", name, err)
	}
	m.Components = components

	apisRaw := raw.APIs
	if len(apisRaw) == 0 {
		apisRaw = raw.APIEndpoints
	}
	apis, err := decodeEndpoints(apisRaw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: apis: %w", name, err)
	}
	m.APIs = apis

	flowsRaw := raw.Flows
	if len(flowsRaw) == 0 {
		flowsRaw = raw.UserFlows
	}
	flows, err := decodeFlows(flowsRaw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: flows: %w", name, err)
	}
	m.Flows = flows

	if len(raw.FeatureGroups) > 0 {
		if missing := missingGroupKeys(raw); len(missing) > 0 {
			return nil, fmt.Errorf("parse %s: feature-group document missing required keys: %s",
				name, strings.Join(missing, ", "))
		}
		m.Format = FormatFeatureGroups
		m.FeatureGroups = normalizeGroups(raw.FeatureGroups)
		m.Flows = append(m.Flows, featureFlows(m.FeatureGroups)...)
		return m, nil
	}

	if len(m.Components) == 0 && len(m.APIs) == 0 {
		return nil, fmt.Errorf("parse %s: document declares neither featureGroups nor components/apis", name)
	}
	m.Format = FormatStandard
	return m, nil
}

// missingGroupKeys lists which required companions of featureGroups the
// document leaves out.
func missingGroupKeys(raw rawDocument) []string {
	var missing []string
	if len(raw.TableOfContents) == 0 {
		missing = append(missing, "tableOfContents")
	}
	if len(raw.IntegrationStatus) == 0 {
		missing = append(missing, "integrationStatus")
	}
	if raw.LastUpdated == "" {
		missing = append(missing, "lastUpdated")
	}
	if len(raw.Dependencies) == 0 {
		missing = append(missing, "dependencies")
	}
	return missing
}

func normalizeGroups(groups map[string]rawFeatureGroup) map[string]FeatureGroup {
	out := make(map[string]FeatureGroup, len(groups))
	for groupName, rg := range groups {
		group := FeatureGroup{
			Name:        groupName,
			Description: rg.Description,
			Features:    make(map[string]Feature, len(rg.Features)),
		}
		for featureName, rf := range rg.Features {
			group.Features[featureName] = Feature{
				Name:           featureName,
				Group:          groupName,
				Description:    rf.Description,
				UserFlow:       rf.UserFlow,
				SystemFlow:     rf.SystemFlow,
				Components:     rf.Components,
				APIIntegration: rf.APIIntegration,
			}
		}
		out[groupName] = group
	}
	return out
}

// featureFlows converts each feature's plain-string userFlow into a
// structured flow so sequence analysis covers both document shapes.
func featureFlows(groups map[string]FeatureGroup) []UserFlow {
	var flows []UserFlow
	groupNames := make([]string, 0, len(groups))
	for g := range groups {
		groupNames = append(groupNames, g)
	}
	sort.Strings(groupNames)
	for _, g := range groupNames {
		group := groups[g]
		featureNames := make([]string, 0, len(group.Features))
		for f := range group.Features {
			featureNames = append(featureNames, f)
		}
		sort.Strings(featureNames)
		for _, f := range featureNames {
			feature := group.Features[f]
			if len(feature.UserFlow) == 0 {
				continue
			}
			flow := UserFlow{Name: g + "/" + f + " user flow"}
			for _, step := range feature.UserFlow {
				flow.Steps = append(flow.Steps, FlowStep{Step: step})
			}
			flows = append(flows, flow)
		}
	}
	return flows
}

// decodeComponents accepts either an array of component objects (or bare
// name strings) or a name-keyed map of component objects.
func decodeComponents(data json.RawMessage) (map[string]Component, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err == nil {
		out := make(map[string]Component, len(entries))
		for i, entry := range entries {
			var c Component
			if err := json.Unmarshal(entry, &c); err != nil {
				var s string
				if err2 := json.Unmarshal(entry, &s); err2 != nil {
					return nil, fmt.Errorf("entry %d is neither object nor string", i)
				}
				c = Component{Name: s}
			}
			if c.Name == "" {
				return nil, fmt.Errorf("entry %d has no name", i)
			}
			out[c.Name] = c
		}
		return out, nil
	}

	var keyed map[string]Component
	if err := json.Unmarshal(data, &keyed); err != nil {
		return nil, fmt.Errorf("not an array or name-keyed map")
	}
	for name, c := range keyed {
		if c.Name == "" {
			c.Name = name
			keyed[name] = c
		}
	}
	return keyed, nil
}

func decodeEndpoints(data json.RawMessage) ([]APIEndpoint, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var rawList []rawEndpoint
	if err := json.Unmarshal(data, &rawList); err != nil {
		return nil, fmt.Errorf("not an endpoint array")
	}
	out := make([]APIEndpoint, 0, len(rawList))
	for i, re := range rawList {
		path := re.Path
		if path == "" {
			path = re.Endpoint
		}
		if path == "" {
			return nil, fmt.Errorf("entry %d has no path", i)
		}
		handler := re.HandlerFile
		if handler == "" {
			handler = re.Handler
		}
		method := strings.ToUpper(strings.TrimSpace(re.Method))
		if method == "" {
			method = "GET"
		}
		out = append(out, APIEndpoint{
			Method:         method,
			Path:           path,
			HandlerFile:    handler,
			Description:    re.Description,
			RequestSchema:  re.RequestSchema,
			ResponseSchema: re.ResponseSchema,
			DatabaseTables: re.DatabaseTables,
		})
	}
	return out, nil
}

func decodeFlows(data json.RawMessage) ([]UserFlow, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var rawList []rawFlow
	if err := json.Unmarshal(data, &rawList); err != nil {
		return nil, fmt.Errorf("not a flow array")
	}
	out := make([]UserFlow, 0, len(rawList))
	for i, rf := range rawList {
		flow := UserFlow{Name: rf.Name, Description: rf.Description}
		if flow.Name == "" {
			flow.Name = fmt.Sprintf("flow-%d", i+1)
		}
		for j, stepRaw := range rf.Steps {
			var rs rawStep
			if err := json.Unmarshal(stepRaw, &rs); err != nil {
				var s string
				if err2 := json.Unmarshal(stepRaw, &s); err2 != nil {
					return nil, fmt.Errorf("flow %q step %d is neither object nor string", flow.Name, j)
				}
				rs = rawStep{Step: s}
			}
			text := rs.Step
			if text == "" {
				text = rs.Description
			}
			flow.Steps = append(flow.Steps, FlowStep{
				Step:          text,
				Component:     rs.Component,
				API:           rs.API,
				Action:        rs.Action,
				ErrorHandling: rs.ErrorHandling,
			})
		}
		out = append(out, flow)
	}
	return out, nil
}

// decodeStringList tolerates both a plain array of strings and a single
// string value.
func decodeStringList(data json.RawMessage) []string {
	if len(data) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil && single != "" {
		return []string{single}
	}
	return nil
}
