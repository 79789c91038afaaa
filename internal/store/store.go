// Package store keeps commits and refs under .weave/. Commit objects are
// zstd-compressed JSON addressed by commit id; the virtual root commit is
// never written.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"weave/internal/graph"
	"weave/internal/repo"
)

const objectExt = ".zst"

// ErrNoCommit is returned when a commit id has no object.
var ErrNoCommit = errors.New("commit not found")

// Store is a repository's commit and ref storage.
type Store struct {
	root string
}

// Open returns the store of the repository at repoPath. It does not touch
// the disk.
func Open(repoPath string) *Store {
	return &Store{root: repoPath}
}

// Path returns the repository root.
func (s *Store) Path() string { return s.root }

// NewChangeID returns a fresh random change id.
func NewChangeID() graph.ChangeID {
	u := uuid.New()
	return graph.EncodeChangeID(u[:])
}

// Init writes an empty working-copy commit on top of the root and checks it
// out. The repository directories must already exist.
func (s *Store) Init(sig graph.Signature) (*graph.Commit, error) {
	wc := &graph.Commit{
		ChangeID:  NewChangeID(),
		Parents:   []graph.CommitID{graph.RootCommitID},
		Author:    sig,
		Committer: sig,
		Empty:     true,
	}
	if err := s.SaveCommit(wc); err != nil {
		return nil, err
	}
	if err := s.SetWorkingCopy(wc.ID); err != nil {
		return nil, err
	}
	return wc, nil
}

func (s *Store) objectPath(id graph.CommitID) string {
	return repo.Dir(s.root, "commits", string(id)+objectExt)
}

// SaveCommit writes c. An empty ID is filled in from the commit's content.
func (s *Store) SaveCommit(c *graph.Commit) error {
	if c.IsRoot() {
		return nil
	}
	if c.ID == "" {
		c.ID = graph.ComputeID(c)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal commit: %w", err)
	}
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return fmt.Errorf("creating zstd encoder: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return fmt.Errorf("compressing commit: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("compressing commit: %w", err)
	}
	if err := writeFileAtomic(s.objectPath(c.ID), buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write commit file: %w", err)
	}
	return nil
}

// LoadCommit reads one commit. The root commit is synthesised.
func (s *Store) LoadCommit(id graph.CommitID) (*graph.Commit, error) {
	if id == graph.RootCommitID {
		return graph.NewRootCommit(), nil
	}
	f, err := os.Open(s.objectPath(id))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNoCommit, id)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeCommit(f)
}

func decodeCommit(r io.Reader) (*graph.Commit, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer dec.Close()
	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decompressing commit: %w", err)
	}
	var c graph.Commit
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal commit: %w", err)
	}
	return &c, nil
}

func (s *Store) removeCommit(id graph.CommitID) error {
	err := os.Remove(s.objectPath(id))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// ListCommits returns every stored commit plus the root, sorted by id.
func (s *Store) ListCommits() ([]*graph.Commit, error) {
	dir := repo.Dir(s.root, "commits")
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	out := []*graph.Commit{graph.NewRootCommit()}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, objectExt) {
			continue
		}
		c, err := s.LoadCommit(graph.CommitID(strings.TrimSuffix(name, objectExt)))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Index builds the commit index over every stored commit.
func (s *Store) Index() (*graph.Index, error) {
	cs, err := s.ListCommits()
	if err != nil {
		return nil, err
	}
	return graph.NewIndex(cs)
}

func (s *Store) workingCopyPath() string {
	return repo.Dir(s.root, "working_copy")
}

// WorkingCopy returns the checked-out commit, or "" before Init.
func (s *Store) WorkingCopy() (graph.CommitID, error) {
	b, err := os.ReadFile(s.workingCopyPath())
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return graph.CommitID(strings.TrimSpace(string(b))), nil
}

// SetWorkingCopy checks out id.
func (s *Store) SetWorkingCopy(id graph.CommitID) error {
	return writeFileAtomic(s.workingCopyPath(), []byte(string(id)+"\n"))
}

// Commit finishes the working-copy commit with message and starts a new
// empty one on top of it. Refs that pointed at the old working copy follow
// it to its rewritten id. The old object is removed only after everything
// else is written, so a failure part way leaves the store readable.
func (s *Store) Commit(message string, sig graph.Signature) (done, next *graph.Commit, err error) {
	wcID, err := s.WorkingCopy()
	if err != nil {
		return nil, nil, err
	}
	if wcID == "" {
		return nil, nil, errors.New("no working-copy commit")
	}
	wc, err := s.LoadCommit(wcID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.checkNoChildren(wcID); err != nil {
		return nil, nil, err
	}

	rewritten := *wc
	rewritten.ID = ""
	rewritten.Description = normalizeDescription(message)
	rewritten.Committer = sig
	if err := s.SaveCommit(&rewritten); err != nil {
		return nil, nil, err
	}
	next = &graph.Commit{
		ChangeID:  NewChangeID(),
		Parents:   []graph.CommitID{rewritten.ID},
		Author:    sig,
		Committer: sig,
		Empty:     true,
	}
	if err := s.SaveCommit(next); err != nil {
		return nil, nil, err
	}
	if err := s.SetWorkingCopy(next.ID); err != nil {
		return nil, nil, err
	}
	if err := s.rewriteRefs(wcID, rewritten.ID); err != nil {
		return nil, nil, err
	}
	if rewritten.ID != wcID {
		if err := s.removeCommit(wcID); err != nil {
			return nil, nil, err
		}
	}
	return &rewritten, next, nil
}

// checkNoChildren fails if a stored commit has id as a parent. Rewriting id
// would orphan it.
func (s *Store) checkNoChildren(id graph.CommitID) error {
	cs, err := s.ListCommits()
	if err != nil {
		return err
	}
	for _, c := range cs {
		for _, p := range c.Parents {
			if p == id {
				return fmt.Errorf("working-copy commit %s has child %s and cannot be rewritten", id, c.ID)
			}
		}
	}
	return nil
}

// normalizeDescription ends a non-empty description with exactly one
// newline.
func normalizeDescription(msg string) string {
	msg = strings.TrimRight(msg, "\n")
	if msg == "" {
		return ""
	}
	return msg + "\n"
}

// Signature builds a signature stamped with now at millisecond precision,
// the precision timestamps render with.
func Signature(name, email string, now time.Time) graph.Signature {
	return graph.Signature{Name: name, Email: email, Timestamp: now.Truncate(time.Millisecond)}
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
