package model

// Entity records extracted from documentation chunks. Field names and JSON
// aliases follow the wire shapes consumed downstream; candidates of these
// types flow out of extraction adapters and into the merge policies.

// ObjectClass is a first-class domain concept discovered in an API schema
// (User, Group, Role, ...), annotated with basic taxonomy metadata.
type ObjectClass struct {
	Name           string   `json:"name"`
	Superclass     string   `json:"superclass,omitempty"`
	Abstract       bool     `json:"abstract,omitempty"`
	Embedded       bool     `json:"embedded,omitempty"`
	Description    string   `json:"description"`
	RelevantChunks []DocRef `json:"relevantChunks,omitempty"`
}

// RelevancyLevel grades how strongly an object class belongs to the target
// domain. Produced by the optional remote classification step.
type RelevancyLevel string

const (
	RelevancyLow    RelevancyLevel = "low"
	RelevancyMedium RelevancyLevel = "medium"
	RelevancyHigh   RelevancyLevel = "high"
)

// Meets reports whether l satisfies the minimum level m.
func (l RelevancyLevel) Meets(m RelevancyLevel) bool {
	rank := map[RelevancyLevel]int{RelevancyLow: 0, RelevancyMedium: 1, RelevancyHigh: 2}
	return rank[l] >= rank[m]
}

// ClassRelevancy is one remote classification verdict.
type ClassRelevancy struct {
	Name      string         `json:"name"`
	Relevancy RelevancyLevel `json:"relevant"`
}

// Attribute describes one property of an object class.
type Attribute struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
	MultiValued bool   `json:"multiValued,omitempty"`
	ReadOnly    bool   `json:"readOnly,omitempty"`
}

// Endpoint is an HTTP operation tied to an object class.
type Endpoint struct {
	Path                string   `json:"path"`
	Method              string   `json:"method"`
	Description         string   `json:"description"`
	RequestContentType  string   `json:"requestContentType,omitempty"`
	ResponseContentType string   `json:"responseContentType,omitempty"`
	SuggestedUse        []string `json:"suggestedUse,omitempty"`
}

// AuthMethod is an authentication mechanism found in security schemes.
// Quirks holds verbatim notes about non-standard behavior.
type AuthMethod struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Quirks string `json:"quirks,omitempty"`
}

// BaseAPIEndpoint is one base URL or URI template for calling the API.
// Type is "constant" when the URL is the same for every deployment and
// "dynamic" when it varies per tenant or installation.
type BaseAPIEndpoint struct {
	URI  string `json:"uri"`
	Type string `json:"type"`
}

// InfoMetadata is the product-level API metadata aggregated across a whole
// session, as opposed to the per-entity records above. It grows as a fold:
// each processed chunk receives the running aggregate and returns an
// updated one.
type InfoMetadata struct {
	Name               string            `json:"name"`
	ApplicationVersion string            `json:"applicationVersion"`
	APIVersion         string            `json:"apiVersion"`
	APITypes           []string          `json:"apiType"`
	BaseAPIEndpoints   []BaseAPIEndpoint `json:"baseApiEndpoint"`
}

// Relation links two object classes through a subject-side property.
type Relation struct {
	Name             string `json:"name,omitempty"`
	ShortDescription string `json:"shortDescription,omitempty"`
	Subject          string `json:"subject"`
	SubjectAttribute string `json:"subjectAttribute,omitempty"`
	Object           string `json:"object"`
	ObjectAttribute  string `json:"objectAttribute,omitempty"`
}
