// Package sqltext extracts SQL statements and relation references from
// free-form model output.
package sqltext

import (
	"regexp"
	"strings"
)

var (
	sqlBlockRegex = regexp.MustCompile("(?is)```sql\\s*(.*?)```")
	anyBlockRegex = regexp.MustCompile("(?s)```\\s*(.*?)```")
	keywordRegex  = regexp.MustCompile(`(?i)\b(select|with)\b`)

	tableRefRegex = regexp.MustCompile(`(?i)\b(?:from|join)\s+(?:([a-zA-Z_]\w*)\.)?([a-zA-Z_]\w*)`)
)

// ExtractSQL returns the SQL statement carried by a model response.
// The first ```sql fenced block wins; without one, the whole text is
// accepted only when it contains a query keyword. Returns "" when no
// candidate can be found.
func ExtractSQL(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	if m := sqlBlockRegex.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}

	// Unlabeled fence next: models frequently drop the language tag
	if m := anyBlockRegex.FindStringSubmatch(text); m != nil {
		block := strings.TrimSpace(m[1])
		if keywordRegex.MatchString(block) {
			return block
		}
	}

	if keywordRegex.MatchString(text) {
		return strings.TrimSpace(text)
	}

	return ""
}

// TableRefs finds FROM/JOIN relation identifiers like schema.table or table,
// de-duplicated in first-seen order. It will not catch quoted identifiers or
// aliased subqueries; good enough for prompting and existence checks.
func TableRefs(sql string) []string {
	var refs []string
	seen := make(map[string]bool)

	for _, m := range tableRefRegex.FindAllStringSubmatch(sql, -1) {
		schema, table := m[1], m[2]

		ref := table
		if schema != "" {
			ref = schema + "." + table
		}

		key := strings.ToLower(ref)
		if seen[key] {
			continue
		}
		seen[key] = true
		refs = append(refs, ref)
	}

	return refs
}
