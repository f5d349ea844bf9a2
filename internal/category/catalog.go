// Package category holds the document category catalog and the path-based
// classifier used by the upload routes.
package category

import "strings"

const Default = "other"

// Category describes one catalog entry, including the presentation
// attributes surfaced by the categories API.
type Category struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// catalog order is the presentation order.
var catalog = []Category{
	{Name: "compliance", Color: "#ff6b6b", Icon: "\U0001F6E1️", Description: "Security, PSPF, E8"},
	{Name: "contracts", Color: "#4ecdc4", Icon: "\U0001F4C4", Description: "Legal agreements"},
	{Name: "proposals", Color: "#45b7d1", Icon: "\U0001F4CA", Description: "Tender responses"},
	{Name: "pricing", Color: "#96ceb4", Icon: "\U0001F4B0", Description: "Quotes, budgets"},
	{Name: "requirements", Color: "#ffeaa7", Icon: "\U0001F4CB", Description: "RFPs, SOWs"},
	{Name: "technical", Color: "#a29bfe", Icon: "⚙️", Description: "Technical docs"},
	{Name: "cvs_resumes", Color: "#fd79a8", Icon: "\U0001F464", Description: "Team capabilities"},
	{Name: "policies", Color: "#74b9ff", Icon: "\U0001F4DA", Description: "Internal policies"},
	{Name: Default, Color: "#dfe6e9", Icon: "\U0001F4C1", Description: "Miscellaneous"},
}

// All returns the full catalog in presentation order.
func All() []Category {
	out := make([]Category, len(catalog))
	copy(out, catalog)
	return out
}

// Names returns the catalog names in presentation order.
func Names() []string {
	names := make([]string, len(catalog))
	for i, c := range catalog {
		names[i] = c.Name
	}
	return names
}

// Known reports whether name is a catalog category.
func Known(name string) bool {
	for _, c := range catalog {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Validate filters a list of category names down to the known ones.
// Unknown names are dropped rather than rejected.
func Validate(names []string) []string {
	valid := make([]string, 0, len(names))
	for _, n := range names {
		if Known(n) {
			valid = append(valid, n)
		}
	}
	return valid
}

// cvKeywords are checked before everything else so "cv/" style paths do not
// fall through to a weaker match.
var cvKeywords = []string{"cvs_resumes", "cv/", "cvs/", "resumes/", "resume/"}

var pathKeywords = []string{
	"compliance",
	"contracts",
	"pricing",
	"requirements",
	"technical",
	"policies",
}

// FromPath infers a category from anywhere in the file path. Matching is
// case-insensitive substring search; the singular "proposal" also maps to
// proposals. Unmatched paths get the default category.
func FromPath(path string) string {
	if path == "" {
		return Default
	}
	normalized := strings.ToLower(strings.ReplaceAll(path, "\\", "/"))

	for _, kw := range cvKeywords {
		if strings.Contains(normalized, kw) {
			return "cvs_resumes"
		}
	}
	if strings.Contains(normalized, "proposal") {
		return "proposals"
	}
	for _, kw := range pathKeywords {
		if strings.Contains(normalized, kw) {
			return kw
		}
	}
	return Default
}
