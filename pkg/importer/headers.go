package importer

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed aliases.yaml
var aliasesYAML []byte

var headerFields = mustLoadAliases(aliasesYAML)

func mustLoadAliases(data []byte) map[string]string {
	var byField map[string][]string
	if err := yaml.Unmarshal(data, &byField); err != nil {
		panic(fmt.Sprintf("importer: parse aliases.yaml: %v", err))
	}
	lookup := map[string]string{}
	for field, aliases := range byField {
		lookup[NormalizeHeader(field)] = field
		for _, a := range aliases {
			lookup[NormalizeHeader(a)] = field
		}
	}
	return lookup
}

// NormalizeHeader lowercases h, treats "_", "/" and "-" as spaces and
// collapses runs of whitespace.
func NormalizeHeader(h string) string {
	h = strings.ToLower(h)
	h = strings.NewReplacer("_", " ", "/", " ", "-", " ").Replace(h)
	return strings.Join(strings.Fields(h), " ")
}

// ResolveHeader returns the vendor field for a column header, or "" when the
// column is not recognized.
func ResolveHeader(h string) string {
	return headerFields[NormalizeHeader(h)]
}
