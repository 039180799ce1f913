package taxonomy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// taxonomyFile mirrors the on-disk JSON shape:
// {"domain": "...", "skills": [{"key": "...", "name": "...", "aliases": [...]}]}.
type taxonomyFile struct {
	Domain string `json:"domain"`
	Skills []struct {
		Key     string   `json:"key"`
		Name    string   `json:"name"`
		Aliases []string `json:"aliases"`
	} `json:"skills"`
}

// LoadDir reads every *.json file in dir and compiles a Taxonomy from the
// union of their skills. Files are processed in lexical filename order so
// the resulting compile order (and therefore Matcher result order) is
// stable across runs.
func LoadDir(dir string) (*Taxonomy, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading taxonomy directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var skills []Skill
	seenKeys := make(map[string]bool)
	for _, name := range names {
		fileSkills, err := loadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loading taxonomy file %s: %w", name, err)
		}
		for _, s := range fileSkills {
			if seenKeys[s.Key] {
				continue
			}
			seenKeys[s.Key] = true
			skills = append(skills, s)
		}
	}

	return New(skills), nil
}

// loadFile parses and validates one taxonomy JSON file.
func loadFile(path string) ([]Skill, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tf taxonomyFile
	if err := json.Unmarshal(raw, &tf); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if tf.Domain == "" {
		return nil, fmt.Errorf("missing domain")
	}
	if tf.Skills == nil {
		return nil, fmt.Errorf("missing or non-list skills")
	}

	skills := make([]Skill, 0, len(tf.Skills))
	for i, s := range tf.Skills {
		if s.Key == "" {
			return nil, fmt.Errorf("skill %d: missing or empty key", i)
		}
		if s.Aliases == nil {
			return nil, fmt.Errorf("skill %s: aliases must be a list", s.Key)
		}
		skills = append(skills, Skill{
			Key:     s.Key,
			Name:    s.Name,
			Domain:  tf.Domain,
			Aliases: s.Aliases,
		})
	}
	return skills, nil
}
