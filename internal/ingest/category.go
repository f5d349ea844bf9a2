package ingest

import "strings"

// CategoryUncategorized is the scanner-side default when no path segment
// matches a known category. The route-level classifier in the category
// package uses a different default ("other"); the two are intentionally
// distinct.
const CategoryUncategorized = "uncategorized"

// categoryMapping maps folder names to category labels. Keys are matched
// against whole path segments, not substrings.
var categoryMapping = map[string]string{
	"compliance":   "compliance",
	"proposals":    "proposals",
	"contracts":    "contracts",
	"technical":    "technical",
	"pricing":      "pricing",
	"policies":     "policies",
	"requirements": "requirements",
	"cvs_resumes":  "cvs_resumes",
	"other":        "other",
}

// DetectCategory infers a category from the file's parent folder names.
// Path separators are normalized and matching is case-insensitive; the
// segment closest to the file wins. Returns CategoryUncategorized when no
// segment matches.
func DetectCategory(path string) string {
	normalized := strings.ToLower(strings.ReplaceAll(path, `\`, "/"))
	parts := strings.Split(normalized, "/")

	for i := len(parts) - 1; i >= 0; i-- {
		if category, ok := categoryMapping[parts[i]]; ok {
			return category
		}
	}
	return CategoryUncategorized
}

// Distribution tallies category counts across a scanned file set. Files
// without a category are counted as CategoryUncategorized. The sum of all
// counts equals len(files).
func Distribution(files []FileDescriptor) map[string]int {
	dist := make(map[string]int)
	for _, f := range files {
		category := f.Category
		if category == "" {
			category = CategoryUncategorized
		}
		dist[category]++
	}
	return dist
}
