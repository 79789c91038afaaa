package store

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"weave/internal/graph"
	"weave/internal/repo"
	"weave/internal/revset"
)

// RefKind is a ref namespace.
type RefKind string

const (
	Bookmarks RefKind = "bookmarks"
	Tags      RefKind = "tags"
)

// Each ref is a file under .weave/refs/<kind>/ holding one commit id per
// line. More than one line is a conflicted ref.

func (s *Store) refDir(kind RefKind) string {
	return repo.Dir(s.root, "refs", string(kind))
}

func (s *Store) refPath(kind RefKind, name string) string {
	return repo.Dir(s.root, "refs", string(kind), url.PathEscape(name))
}

func validRefName(name string) error {
	if name == "" || strings.TrimSpace(name) != name || strings.ContainsAny(name, "\n\x00") {
		return fmt.Errorf("invalid ref name %q", name)
	}
	return nil
}

// SetRef points name at ids, replacing its previous targets.
func (s *Store) SetRef(kind RefKind, name string, ids ...graph.CommitID) error {
	if err := validRefName(name); err != nil {
		return err
	}
	if len(ids) == 0 {
		return s.DeleteRef(kind, name)
	}
	var sb strings.Builder
	for _, id := range ids {
		sb.WriteString(string(id))
		sb.WriteByte('\n')
	}
	return writeFileAtomic(s.refPath(kind, name), []byte(sb.String()))
}

// DeleteRef removes name. Removing a missing ref is not an error.
func (s *Store) DeleteRef(kind RefKind, name string) error {
	err := os.Remove(s.refPath(kind, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// GetRef returns the targets of name, or nil if it does not exist.
func (s *Store) GetRef(kind RefKind, name string) ([]graph.CommitID, error) {
	b, err := os.ReadFile(s.refPath(kind, name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []graph.CommitID
	for _, line := range strings.Split(string(b), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			ids = append(ids, graph.CommitID(line))
		}
	}
	return ids, nil
}

// ListRefs returns every ref of kind.
func (s *Store) ListRefs(kind RefKind) (map[string][]graph.CommitID, error) {
	entries, err := os.ReadDir(s.refDir(kind))
	if os.IsNotExist(err) {
		return map[string][]graph.CommitID{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make(map[string][]graph.CommitID, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".tmp-") {
			continue
		}
		name, err := url.PathUnescape(e.Name())
		if err != nil {
			continue
		}
		ids, err := s.GetRef(kind, name)
		if err != nil {
			return nil, err
		}
		out[name] = ids
	}
	return out, nil
}

// RefNames returns the sorted names of kind.
func (s *Store) RefNames(kind RefKind) ([]string, error) {
	refs, err := s.ListRefs(kind)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(refs))
	for n := range refs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// SymbolTable loads bookmarks and tags for revset resolution.
func (s *Store) SymbolTable() (*revset.SymbolTable, error) {
	bookmarks, err := s.ListRefs(Bookmarks)
	if err != nil {
		return nil, err
	}
	tags, err := s.ListRefs(Tags)
	if err != nil {
		return nil, err
	}
	return &revset.SymbolTable{Bookmarks: bookmarks, Tags: tags}, nil
}

// rewriteRefs retargets every ref pointing at from to to.
func (s *Store) rewriteRefs(from, to graph.CommitID) error {
	if from == to {
		return nil
	}
	for _, kind := range []RefKind{Bookmarks, Tags} {
		refs, err := s.ListRefs(kind)
		if err != nil {
			return err
		}
		for name, ids := range refs {
			changed := false
			for i, id := range ids {
				if id == from {
					ids[i] = to
					changed = true
				}
			}
			if changed {
				if err := s.SetRef(kind, name, ids...); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
