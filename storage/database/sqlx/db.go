// Package sqlxrepos implements the domain repositories on PostgreSQL via sqlx.
package sqlxrepos

import (
	"strings"

	"github.com/atcloud/signup/core"
)

// orderableColumns whitelists the columns clients may order by.
var orderableColumns = map[string]bool{
	"title":      true,
	"format":     true,
	"date":       true,
	"publish":    true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"username":   true,
	"email":      true,
	"last_login": true,
}

// orderBy renders an ORDER BY clause from the requested orderings,
// ignoring unknown columns; falls back to the given default.
func orderBy(ordering []core.DBOrdering, dflt string) string {
	var parts []string
	for _, ord := range ordering {
		if orderableColumns[ord.Field] {
			parts = append(parts, ord.String())
		}
	}
	if len(parts) == 0 {
		if dflt == "" {
			return ""
		}
		return " ORDER BY " + dflt
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
