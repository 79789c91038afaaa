// Package graph holds the commit model and a read-only index over a snapshot
// of the commit DAG.
package graph

// CommitGraph is the read-only view of the commit DAG provided by the
// storage layer.
type CommitGraph interface {
	// Commit returns the commit with the given id.
	Commit(id CommitID) (*Commit, bool)
	// Parents returns the parent ids of id.
	Parents(id CommitID) []CommitID
	// Heads returns the commits that are not a parent of any other commit.
	Heads() []CommitID
	// Contains reports whether id is in the graph.
	Contains(id CommitID) bool
	// LookupPrefix returns the commits whose id starts with prefix.
	LookupPrefix(prefix string) []CommitID
}
