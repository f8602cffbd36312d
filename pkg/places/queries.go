package places

import (
	"fmt"
	"strings"
)

// maxContextQueries bounds contextual text-search fan-out per location.
const maxContextQueries = 3

// ContextQueries builds a small set of targeted text-search queries for a
// location, rather than an exhaustive keyword sweep. At most three queries
// are returned; the organization-specific query leads when available.
func ContextQueries(city, organization string) []string {
	city = strings.TrimSpace(city)
	organization = strings.TrimSpace(organization)

	var queries []string
	if organization != "" && city != "" {
		queries = append(queries, fmt.Sprintf("%s office %s", organization, city))
	} else if organization != "" {
		queries = append(queries, fmt.Sprintf("%s office", organization))
	}
	if city != "" {
		queries = append(queries,
			fmt.Sprintf("conference center %s", city),
			fmt.Sprintf("event venue %s", city),
		)
	}

	if len(queries) > maxContextQueries {
		queries = queries[:maxContextQueries]
	}
	return queries
}
