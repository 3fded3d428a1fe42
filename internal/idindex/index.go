// Package idindex maps entity ids to file locations across a workspace and
// resolves related-id links. An Index is a point-in-time snapshot; callers
// rebuild it whenever they need current paths.
package idindex

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/testrack/internal/apperr"
	"github.com/starford/testrack/internal/models"
	"github.com/starford/testrack/internal/parser"
)

// Entity is the lightweight projection of one entity file.
type Entity struct {
	ID      string      `json:"id"`
	Type    models.Kind `json:"type"`
	Path    string      `json:"path"`
	Title   string      `json:"title,omitempty"`
	Related []string    `json:"related"`
}

// Duplicate lists every path that declares the same id, in scan order.
type Duplicate struct {
	ID    string   `json:"id"`
	Paths []string `json:"paths"`
}

// Index is the result of one directory scan.
type Index struct {
	ByID       map[string]Entity `json:"-"`
	Entities   []Entity          `json:"entities"`
	Duplicates []Duplicate       `json:"duplicates"`
}

// Build walks root recursively and indexes every .yaml file that carries a
// string id. Files that fail to parse or have no id are skipped. The first
// file seen for an id wins; later ones are recorded as duplicates.
func Build(root string) (*Index, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("idindex: resolve root: %w", err)
	}
	idx := &Index{
		ByID:       make(map[string]Entity),
		Entities:   []Entity{},
		Duplicates: []Duplicate{},
	}
	dupAt := make(map[string]int)

	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != abs && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		kind, ok := parser.Classify(d.Name())
		if !ok {
			return nil
		}
		rel, err := filepath.Rel(abs, p)
		if err != nil {
			return nil
		}
		ent, ok := project(p, filepath.ToSlash(rel), kind)
		if !ok {
			return nil
		}
		idx.add(ent, dupAt)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("idindex: walk: %w", err)
	}
	return idx, nil
}

func (idx *Index) add(ent Entity, dupAt map[string]int) {
	idx.Entities = append(idx.Entities, ent)
	first, seen := idx.ByID[ent.ID]
	if !seen {
		idx.ByID[ent.ID] = ent
		return
	}
	if i, ok := dupAt[ent.ID]; ok {
		idx.Duplicates[i].Paths = append(idx.Duplicates[i].Paths, ent.Path)
		return
	}
	dupAt[ent.ID] = len(idx.Duplicates)
	idx.Duplicates = append(idx.Duplicates, Duplicate{ID: ent.ID, Paths: []string{first.Path, ent.Path}})
}

func project(abs, rel string, kind models.Kind) (Entity, bool) {
	data, err := os.ReadFile(abs)
	if err != nil {
		return Entity{}, false
	}
	raw, err := parser.Decode(data)
	if err != nil {
		return Entity{}, false
	}
	id, ok := parser.StringField(raw, "id")
	if !ok || id == "" {
		return Entity{}, false
	}
	title, _ := parser.StringField(raw, "title")
	return Entity{
		ID:      id,
		Type:    kind,
		Path:    rel,
		Title:   title,
		Related: parser.StringList(raw, "related"),
	}, true
}

// ResolveByID is a direct lookup of the first entity indexed under id.
func ResolveByID(idx *Index, id string) (Entity, bool) {
	ent, ok := idx.ByID[id]
	return ent, ok
}

// DuplicatePaths returns every path declaring id when it is duplicated.
func (idx *Index) DuplicatePaths(id string) ([]string, bool) {
	for _, d := range idx.Duplicates {
		if d.ID == id {
			return d.Paths, true
		}
	}
	return nil, false
}

// Resolve returns the single entity for id. A missing id is ErrNotFound; an
// id declared by more than one file is ErrDuplicateID naming every path.
func Resolve(idx *Index, id string) (Entity, error) {
	if paths, dup := idx.DuplicatePaths(id); dup {
		return Entity{}, fmt.Errorf("idindex: %q declared in %s: %w", id, strings.Join(paths, ", "), apperr.ErrDuplicateID)
	}
	ent, ok := idx.ByID[id]
	if !ok {
		return Entity{}, fmt.Errorf("idindex: %q: %w", id, apperr.ErrNotFound)
	}
	return ent, nil
}

// Related is the partition of an entity's related ids.
type Related struct {
	Resolved []Entity `json:"resolved"`
	Missing  []string `json:"missing"`
}

// ResolveRelated splits ent.Related into entities found in idx and ids that
// dangle. Dangling ids are data, not errors.
func ResolveRelated(idx *Index, ent Entity) Related {
	return ResolveIDs(idx, ent.Related)
}

// ResolveIDs partitions an arbitrary id list the same way ResolveRelated does.
func ResolveIDs(idx *Index, ids []string) Related {
	out := Related{Resolved: []Entity{}, Missing: []string{}}
	for _, id := range ids {
		if ent, ok := idx.ByID[id]; ok {
			out.Resolved = append(out.Resolved, ent)
			continue
		}
		out.Missing = append(out.Missing, id)
	}
	return out
}

// ReferencedBy returns every indexed entity whose related list contains id.
func ReferencedBy(idx *Index, id string) []Entity {
	out := []Entity{}
	for _, ent := range idx.Entities {
		for _, r := range ent.Related {
			if r == id {
				out = append(out, ent)
				break
			}
		}
	}
	return out
}

// Dangling reports, per entity, the related ids that do not resolve.
func Dangling(idx *Index) map[string][]string {
	out := make(map[string][]string)
	for _, ent := range idx.Entities {
		if missing := ResolveRelated(idx, ent).Missing; len(missing) > 0 {
			out[ent.Path] = missing
		}
	}
	return out
}
