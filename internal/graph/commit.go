package graph

import (
	"encoding/hex"
	"strings"
	"time"

	"lukechampine.com/blake3"
)

// CommitID is the content address of a commit, in lowercase hex.
type CommitID string

// ChangeID identifies a change across rewrites. Change ids are spelled with
// the reversed hex alphabet (z..k) so they never collide with commit id
// prefixes.
type ChangeID string

// idLen is the length in bytes of a commit id.
const idLen = 20

var (
	RootCommitID = CommitID(strings.Repeat("0", idLen*2))
	RootChangeID = ChangeID(strings.Repeat("z", 32))
)

// Signature records who made a commit and when.
type Signature struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
}

// Commit is the read-only view of a commit exposed to the languages.
type Commit struct {
	ID          CommitID   `json:"id"`
	ChangeID    ChangeID   `json:"changeId"`
	Parents     []CommitID `json:"parents"`
	Description string     `json:"description"`
	Author      Signature  `json:"author"`
	Committer   Signature  `json:"committer"`
	Empty       bool       `json:"empty"`
	Conflict    bool       `json:"conflict"`
}

// IsRoot reports whether c is the virtual root commit.
func (c *Commit) IsRoot() bool { return c.ID == RootCommitID }

// NewRootCommit returns the virtual root that every history descends from.
func NewRootCommit() *Commit {
	return &Commit{
		ID:       RootCommitID,
		ChangeID: RootChangeID,
		Empty:    true,
	}
}

// ComputeID derives the content address of c from everything but its id.
func ComputeID(c *Commit) CommitID {
	h := blake3.New(idLen, nil)
	h.Write([]byte(c.ChangeID))
	h.Write([]byte{0})
	for _, p := range c.Parents {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	h.Write([]byte(c.Description))
	h.Write([]byte{0})
	for _, s := range []Signature{c.Author, c.Committer} {
		h.Write([]byte(s.Name))
		h.Write([]byte{0})
		h.Write([]byte(s.Email))
		h.Write([]byte{0})
		h.Write([]byte(s.Timestamp.UTC().Format(time.RFC3339Nano)))
		h.Write([]byte{0})
	}
	if c.Empty {
		h.Write([]byte{1})
	}
	if c.Conflict {
		h.Write([]byte{2})
	}
	return CommitID(hex.EncodeToString(h.Sum(nil)))
}

const changeAlphabet = "zyxwvutsrqponmlk"

// EncodeChangeID spells b with the reversed hex alphabet.
func EncodeChangeID(b []byte) ChangeID {
	var sb strings.Builder
	sb.Grow(len(b) * 2)
	for _, c := range b {
		sb.WriteByte(changeAlphabet[c>>4])
		sb.WriteByte(changeAlphabet[c&0xf])
	}
	return ChangeID(sb.String())
}
