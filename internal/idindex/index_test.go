package idindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/testrack/internal/apperr"
	"github.com/starford/testrack/internal/models"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestBuild_ClassifiesFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "auth/index.yaml", "id: auth\ntitle: Auth\n")
	writeFile(t, root, "billing.suite.yaml", "id: billing\n")
	writeFile(t, root, "auth/login.testcase.yaml", "id: login\ntitle: Login\nrelated: [auth]\n")
	writeFile(t, root, "auth/loose.yaml", "id: loose\n")
	writeFile(t, root, "notes.txt", "id: ignored\n")

	idx, err := Build(root)
	require.NoError(t, err)

	assert.Len(t, idx.Entities, 4)
	assert.Equal(t, models.KindSuite, idx.ByID["auth"].Type)
	assert.Equal(t, models.KindSuite, idx.ByID["billing"].Type)
	assert.Equal(t, models.KindCase, idx.ByID["login"].Type)
	assert.Equal(t, models.KindCase, idx.ByID["loose"].Type)
	assert.Equal(t, "auth/login.testcase.yaml", idx.ByID["login"].Path)
	assert.Equal(t, "Login", idx.ByID["login"].Title)
	assert.Equal(t, []string{"auth"}, idx.ByID["login"].Related)
	assert.Empty(t, idx.Duplicates)
}

func TestBuild_SkipsUnusableFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "no-id.testcase.yaml", "title: nothing\n")
	writeFile(t, root, "numeric-id.testcase.yaml", "id: 42\n")
	writeFile(t, root, "broken.testcase.yaml", "id: [unclosed\n")
	writeFile(t, root, "list.testcase.yaml", "- a\n- b\n")
	writeFile(t, root, ".trash/old.testcase.yaml", "id: old\n")
	writeFile(t, root, "ok.testcase.yaml", "id: ok\n")

	idx, err := Build(root)
	require.NoError(t, err)

	require.Len(t, idx.Entities, 1)
	assert.Equal(t, "ok", idx.Entities[0].ID)
}

func TestBuild_FirstOccurrenceWins(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/dup.testcase.yaml", "id: dup\ntitle: First\n")
	writeFile(t, root, "b/dup.testcase.yaml", "id: dup\ntitle: Second\n")
	writeFile(t, root, "c/dup.testcase.yaml", "id: dup\ntitle: Third\n")

	idx, err := Build(root)
	require.NoError(t, err)

	assert.Equal(t, "First", idx.ByID["dup"].Title)
	require.Len(t, idx.Duplicates, 1)
	assert.Equal(t, "dup", idx.Duplicates[0].ID)
	assert.Equal(t, []string{"a/dup.testcase.yaml", "b/dup.testcase.yaml", "c/dup.testcase.yaml"}, idx.Duplicates[0].Paths)
	assert.Len(t, idx.Entities, 3)
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/dup.testcase.yaml", "id: dup\n")
	writeFile(t, root, "b/dup.testcase.yaml", "id: dup\n")
	writeFile(t, root, "one.testcase.yaml", "id: one\n")

	idx, err := Build(root)
	require.NoError(t, err)

	ent, err := Resolve(idx, "one")
	require.NoError(t, err)
	assert.Equal(t, "one.testcase.yaml", ent.Path)

	_, err = Resolve(idx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = Resolve(idx, "dup")
	assert.ErrorIs(t, err, apperr.ErrDuplicateID)
	assert.Contains(t, err.Error(), "a/dup.testcase.yaml")
	assert.Contains(t, err.Error(), "b/dup.testcase.yaml")

	ent, ok := ResolveByID(idx, "dup")
	assert.True(t, ok)
	assert.Equal(t, "a/dup.testcase.yaml", ent.Path)
}

func TestResolveRelated_PartitionsMissing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.testcase.yaml", "id: a\nrelated: [b, ghost, c]\n")
	writeFile(t, root, "b.testcase.yaml", "id: b\nrelated: [a]\n")
	writeFile(t, root, "c/index.yaml", "id: c\n")

	idx, err := Build(root)
	require.NoError(t, err)

	rel := ResolveRelated(idx, idx.ByID["a"])
	require.Len(t, rel.Resolved, 2)
	assert.Equal(t, "b", rel.Resolved[0].ID)
	assert.Equal(t, "c", rel.Resolved[1].ID)
	assert.Equal(t, []string{"ghost"}, rel.Missing)

	refs := ReferencedBy(idx, "a")
	require.Len(t, refs, 1)
	assert.Equal(t, "b", refs[0].ID)

	assert.Equal(t, map[string][]string{"a.testcase.yaml": {"ghost"}}, Dangling(idx))
}
