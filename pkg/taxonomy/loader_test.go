package taxonomy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTaxonomyFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDir_ValidFiles(t *testing.T) {
	dir := t.TempDir()
	writeTaxonomyFile(t, dir, "a-programming.json", `{
		"domain": "programming",
		"skills": [
			{"key": "python", "name": "Python", "aliases": ["py"]}
		]
	}`)
	writeTaxonomyFile(t, dir, "b-frontend.json", `{
		"domain": "frontend",
		"skills": [
			{"key": "react", "name": "React", "aliases": ["reactjs"]}
		]
	}`)

	tax, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, tax.Skills, 2)
	assert.Equal(t, "python", tax.Skills[0].Key)
	assert.Equal(t, "react", tax.Skills[1].Key)
	assert.Equal(t, []string{"python"}, tax.Matcher.Match("I use Python"))
}

func TestLoadDir_DuplicateKeyAcrossFilesKeepsFirst(t *testing.T) {
	dir := t.TempDir()
	writeTaxonomyFile(t, dir, "a.json", `{"domain": "d1", "skills": [{"key": "python", "name": "Python", "aliases": []}]}`)
	writeTaxonomyFile(t, dir, "b.json", `{"domain": "d2", "skills": [{"key": "python", "name": "Py Duplicate", "aliases": []}]}`)

	tax, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, tax.Skills, 1)
	assert.Equal(t, "d1", tax.Skills[0].Domain)
}

func TestLoadFile_RejectsMissingDomain(t *testing.T) {
	dir := t.TempDir()
	writeTaxonomyFile(t, dir, "bad.json", `{"skills": [{"key": "python", "name": "Python", "aliases": []}]}`)
	_, err := LoadDir(dir)
	assert.Error(t, err)
}

func TestLoadFile_RejectsNonListSkills(t *testing.T) {
	dir := t.TempDir()
	writeTaxonomyFile(t, dir, "bad.json", `{"domain": "d", "skills": "not-a-list"}`)
	_, err := LoadDir(dir)
	assert.Error(t, err)
}

func TestLoadFile_RejectsEmptyKey(t *testing.T) {
	dir := t.TempDir()
	writeTaxonomyFile(t, dir, "bad.json", `{"domain": "d", "skills": [{"key": "", "name": "X", "aliases": []}]}`)
	_, err := LoadDir(dir)
	assert.Error(t, err)
}

func TestLoadFile_RejectsNonListAliases(t *testing.T) {
	dir := t.TempDir()
	writeTaxonomyFile(t, dir, "bad.json", `{"domain": "d", "skills": [{"key": "python", "name": "Python", "aliases": "py"}]}`)
	_, err := LoadDir(dir)
	assert.Error(t, err)
}
