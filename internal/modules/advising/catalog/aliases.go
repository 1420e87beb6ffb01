package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/coursebridge-backend/internal/modules/advising/coursecode"
)

//go:embed aliases.yaml
var defaultAliasesYAML []byte

type aliasFile struct {
	Aliases []struct {
		Course  string   `yaml:"course"`
		Phrases []string `yaml:"phrases"`
	} `yaml:"aliases"`
}

// Alias maps one normalized phrase to one course id. A phrase listed under two
// courses yields two Alias values and is reported as ambiguous at match time.
type Alias struct {
	Phrase   string
	CourseID string
}

// AliasTable is immutable after construction and safe for concurrent use.
type AliasTable struct {
	// longest phrase first, then phrase, then course id
	entries []Alias
}

// DefaultAliases returns the table compiled into the binary.
func DefaultAliases() (*AliasTable, error) {
	return ParseAliases(defaultAliasesYAML)
}

// LoadAliases reads a YAML alias table from path; an empty path means the default table.
func LoadAliases(path string) (*AliasTable, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultAliases()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read aliases %s: %w", path, err)
	}
	return ParseAliases(raw)
}

func ParseAliases(raw []byte) (*AliasTable, error) {
	var f aliasFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse aliases: %w", err)
	}
	seen := map[Alias]struct{}{}
	t := &AliasTable{}
	for i, a := range f.Aliases {
		id, ok := coursecode.Canonical(a.Course)
		if !ok {
			return nil, fmt.Errorf("alias entry %d: invalid course id %q", i, a.Course)
		}
		for _, p := range a.Phrases {
			phrase := coursecode.Normalize(p)
			if phrase == "" {
				continue
			}
			al := Alias{Phrase: phrase, CourseID: id}
			if _, dup := seen[al]; dup {
				continue
			}
			seen[al] = struct{}{}
			t.entries = append(t.entries, al)
		}
	}
	sort.SliceStable(t.entries, func(i, j int) bool {
		a, b := t.entries[i], t.entries[j]
		if len(a.Phrase) != len(b.Phrase) {
			return len(a.Phrase) > len(b.Phrase)
		}
		if a.Phrase != b.Phrase {
			return a.Phrase < b.Phrase
		}
		return a.CourseID < b.CourseID
	})
	return t, nil
}

func (t *AliasTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}
