package plan

import "github.com/chadnetzer/hardlinkable/internal/inode"

// UnionFind is a disjoint-set structure over inode identities, with path
// compression and union by rank.
type UnionFind struct {
	parent map[inode.DevIno]inode.DevIno
	rank   map[inode.DevIno]int
}

// NewUnionFind creates an empty structure.
func NewUnionFind() *UnionFind {
	return &UnionFind{
		parent: make(map[inode.DevIno]inode.DevIno),
		rank:   make(map[inode.DevIno]int),
	}
}

// Find returns the representative of id's set, adding a singleton set if
// id is unknown.
func (u *UnionFind) Find(id inode.DevIno) inode.DevIno {
	p, ok := u.parent[id]
	if !ok {
		u.parent[id] = id
		return id
	}
	if p == id {
		return id
	}
	root := u.Find(p)
	u.parent[id] = root
	return root
}

// Union joins the sets containing a and b.
func (u *UnionFind) Union(a, b inode.DevIno) {
	ra, rb := u.Find(a), u.Find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}

// Same reports whether a and b are in one set.
func (u *UnionFind) Same(a, b inode.DevIno) bool {
	return u.Find(a) == u.Find(b)
}

// Groups partitions the given ids into their sets, keeping only sets with
// two or more members. Group order follows the first appearance of any
// member in ids; members keep their order from ids.
func (u *UnionFind) Groups(ids []inode.DevIno) [][]inode.DevIno {
	byRoot := make(map[inode.DevIno][]inode.DevIno)
	var rootOrder []inode.DevIno
	for _, id := range ids {
		root := u.Find(id)
		if _, seen := byRoot[root]; !seen {
			rootOrder = append(rootOrder, root)
		}
		byRoot[root] = append(byRoot[root], id)
	}

	var out [][]inode.DevIno
	for _, root := range rootOrder {
		if members := byRoot[root]; len(members) >= 2 {
			out = append(out, members)
		}
	}
	return out
}
