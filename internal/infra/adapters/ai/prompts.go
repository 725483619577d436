package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"apidoc-digester/internal/domain/model"
	"apidoc-digester/internal/domain/ports/adapter"
)

// Prompt builders for the extraction and ranking calls. Every prompt demands
// a bare JSON answer so the normalization boundary stays simple.

const answerJSONArray = "Answer with a JSON array only, no prose, no markdown fences. Answer [] when nothing qualifies."

func contextPreamble(ec adapter.ExtractionContext) string {
	var b strings.Builder
	if ec.Summary != "" {
		fmt.Fprintf(&b, "Document summary: %s\n", ec.Summary)
	}
	if len(ec.Tags) > 0 {
		fmt.Fprintf(&b, "Document tags: %s\n", strings.Join(ec.Tags, ", "))
	}
	if ec.BaseAPIURL != "" {
		fmt.Fprintf(&b, "Base API URL: %s\n", ec.BaseAPIURL)
	}
	return b.String()
}

func objectClassPrompt(chunk string, ec adapter.ExtractionContext) (system, user string) {
	system = "You analyze REST API documentation and list the domain object classes it describes. " +
		`Each array item: {"name", "superclass", "abstract", "embedded", "description"}. ` +
		answerJSONArray
	user = contextPreamble(ec) + "Documentation excerpt:\n" + chunk
	return
}

func attributePrompt(chunk string, ec adapter.ExtractionContext) (system, user string) {
	system = fmt.Sprintf("You list the attributes of the object class %q described in REST API documentation. ", ec.ObjectClass) +
		`Each array item: {"name", "type", "description", "required", "multiValued", "readOnly"}. ` +
		answerJSONArray
	user = contextPreamble(ec) + "Documentation excerpt:\n" + chunk
	return
}

func endpointPrompt(chunk string, ec adapter.ExtractionContext) (system, user string) {
	system = fmt.Sprintf("You list the HTTP endpoints operating on the object class %q in REST API documentation. ", ec.ObjectClass) +
		`Each array item: {"path", "method", "description", "requestContentType", "responseContentType", "suggestedUse"}. ` +
		answerJSONArray
	user = contextPreamble(ec) + "Documentation excerpt:\n" + chunk
	return
}

func authMethodPrompt(chunk string, ec adapter.ExtractionContext) (system, user string) {
	system = "You list the authentication mechanisms described in REST API documentation. " +
		`Each array item: {"name", "type", "quirks"}; "quirks" notes non-standard behavior verbatim. ` +
		answerJSONArray
	user = contextPreamble(ec) + "Documentation excerpt:\n" + chunk
	return
}

func relationPrompt(text string, ec adapter.ExtractionContext) (system, user string) {
	var classes strings.Builder
	for _, c := range ec.Classes {
		fmt.Fprintf(&classes, "- %s: %s\n", c.Name, c.Description)
	}
	system = "You identify relations between the known object classes of an API, " +
		"where one class references another through an attribute. " +
		`Each array item: {"name", "shortDescription", "subject", "subjectAttribute", "object", "objectAttribute"}. ` +
		answerJSONArray
	user = contextPreamble(ec) + "Known object classes:\n" + classes.String() + "\nDocumentation:\n" + text
	return
}

func verifyEndpointPrompt(ep model.Endpoint, snippet string, ec adapter.ExtractionContext) (system, user string) {
	system = "You verify one previously extracted HTTP endpoint against the documentation surrounding its path. " +
		`Correct any wrong field and answer with one JSON object {"path", "method", "description", "requestContentType", "responseContentType", "suggestedUse"}, no prose.`
	user = fmt.Sprintf("%sEndpoint under review: %s %s\nSurrounding documentation:\n%s", contextPreamble(ec), ep.Method, ep.Path, snippet)
	return
}

func infoPrompt(chunk string, aggregate model.InfoMetadata, ec adapter.ExtractionContext) (system, user string) {
	system = "You maintain product-level metadata about an API while reading its documentation chunk by chunk. " +
		"Update the running aggregate with facts from the new excerpt and keep everything already known. " +
		`Answer with one JSON object {"name", "applicationVersion", "apiVersion", "apiType", "baseApiEndpoint"}, no prose. ` +
		`"name" is the product name in its original casing; "applicationVersion" is the product version or "" when absent, never a standard's version; ` +
		`"apiVersion" is the API version without a leading v; "apiType" lists technologies among REST, OpenAPI, SCIM, SOAP, GraphQL, Other; ` +
		`"baseApiEndpoint" lists base URLs as {"uri", "type"} with type "constant" or "dynamic", using <hostname> templates for tenant-specific hosts.`
	agg, _ := json.Marshal(aggregate)
	user = fmt.Sprintf("%sAggregate so far:\n%s\nNew documentation excerpt:\n%s", contextPreamble(ec), agg, chunk)
	return
}

func rankAuthPrompt(methods []model.AuthMethod) (system, user string) {
	system = "You order authentication mechanisms from most to least important for a client integrating with this API. " +
		`Answer with the same items as a JSON array of {"name", "type", "quirks"}. ` + answerJSONArray
	user = listAsJSONLines(methods, func(m model.AuthMethod) string {
		return fmt.Sprintf("- name=%q type=%q quirks=%q", m.Name, m.Type, m.Quirks)
	})
	return
}

func classifyClassesPrompt(classes []model.ObjectClass) (system, user string) {
	system = "You grade how relevant each object class is to the API's core domain, as opposed to bookkeeping or plumbing. " +
		`Each array item: {"name", "relevant"} where "relevant" is "low", "medium" or "high". ` + answerJSONArray
	user = listAsJSONLines(classes, func(c model.ObjectClass) string {
		return fmt.Sprintf("- %s: %s", c.Name, c.Description)
	})
	return
}

func rankClassesPrompt(classes []model.ObjectClass) (system, user string) {
	system = "You order object classes from most to least important within the API's domain. " +
		`Answer with the same items as a JSON array of {"name"}. ` + answerJSONArray
	user = listAsJSONLines(classes, func(c model.ObjectClass) string {
		return fmt.Sprintf("- %s: %s", c.Name, c.Description)
	})
	return
}

func resolveAttributesPrompt(objectClass string, conflicts map[string][]model.Attribute) (system, user string) {
	system = fmt.Sprintf("Several descriptions of the same attribute of object class %q conflict. ", objectClass) +
		"Pick, for every attribute name, the single candidate that best matches that class; never mix fields from different candidates. " +
		`Answer with a JSON array of the chosen {"name", "type", "description", "required", "multiValued", "readOnly"} objects. ` +
		answerJSONArray
	var b strings.Builder
	for name, group := range conflicts {
		fmt.Fprintf(&b, "Attribute %q candidates:\n", name)
		for i, a := range group {
			fmt.Fprintf(&b, "  %d. type=%q required=%v multiValued=%v readOnly=%v description=%q\n",
				i+1, a.Type, a.Required, a.MultiValued, a.ReadOnly, a.Description)
		}
	}
	user = b.String()
	return
}

func listAsJSONLines[T any](items []T, line func(T) string) string {
	var b strings.Builder
	for _, it := range items {
		b.WriteString(line(it))
		b.WriteByte('\n')
	}
	return b.String()
}
