package citekey

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadAliases reads an AliasTable from a YAML file mapping alias names to
// concrete citation keys:
//
//	study-x: doi:10.1038/nbt.3780
//	deep-review: doi:10.1098/rsif.2017.0387
//
// A table entry whose target is itself an alias or a tag: key is rejected,
// since aliases must resolve in a single hop.
func LoadAliases(path string) (AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading alias table: %w", err)
	}
	var table AliasTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing alias table %s: %w", path, err)
	}
	if err := CheckAliases(table); err != nil {
		return nil, err
	}
	return table, nil
}

// CheckAliases rejects alias chains and self-referential aliases.
func CheckAliases(table AliasTable) error {
	for alias, target := range table {
		if target == alias {
			return fmt.Errorf("alias %q is self-referential", alias)
		}
		if _, chained := table[target]; chained {
			return fmt.Errorf("alias %q targets another alias %q; aliases must resolve in one hop", alias, target)
		}
	}
	return nil
}
