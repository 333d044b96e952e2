// Package tree derives the nested folder view from the flat folder and task
// collections. The flat collections stay the source of truth; nodes here are
// rebuilt snapshots, never mutated in place.
package tree

import (
	"sort"

	"planner/internal/model"
)

// Node is a folder with its resolved children and the tasks filed under it.
type Node struct {
	model.Folder
	Children []*Node
	Tasks    []model.Task
}

// Build assembles the folder forest in two passes: bucket tasks into their
// folders, then attach each folder to its parent. Folders whose parent is
// missing (deleted on another device, or pointing at themselves) are
// promoted to the root rather than dropped. Siblings are sorted by
// SortOrder; ties keep input order.
func Build(folders []model.Folder, tasks []model.Task) []*Node {
	nodes := make(map[string]*Node, len(folders))
	for _, f := range folders {
		nodes[f.ID] = &Node{Folder: f}
	}

	for _, t := range tasks {
		if t.FolderID == nil {
			continue // inbox task, belongs to no node
		}
		if n, ok := nodes[*t.FolderID]; ok {
			n.Tasks = append(n.Tasks, t)
		}
	}

	var roots []*Node
	for _, f := range folders {
		n := nodes[f.ID]
		if f.ParentID != nil {
			if p, ok := nodes[*f.ParentID]; ok && p != n {
				p.Children = append(p.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}

	sortSiblings(roots)
	return roots
}

func sortSiblings(ns []*Node) {
	sort.SliceStable(ns, func(i, j int) bool { return ns[i].SortOrder < ns[j].SortOrder })
	for _, n := range ns {
		sortSiblings(n.Children)
	}
}

// Find returns the node with the given folder id, or nil. Depth-first over
// the forest, guarded against corrupted parent cycles.
func Find(roots []*Node, id string) *Node {
	var found *Node
	walk(roots, func(n *Node) bool {
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Flatten returns every node in pre-order, for search and autocomplete.
func Flatten(roots []*Node) []*Node {
	var out []*Node
	walk(roots, func(n *Node) bool {
		out = append(out, n)
		return true
	})
	return out
}

// DescendantIDs collects the ids of every folder below id, pre-order. The
// folder's own id is not included. Unknown ids yield nil.
func DescendantIDs(roots []*Node, id string) []string {
	n := Find(roots, id)
	if n == nil {
		return nil
	}
	var out []string
	walk(n.Children, func(d *Node) bool {
		out = append(out, d.ID)
		return true
	})
	return out
}

// walk visits nodes pre-order until visit returns false. The seen set keeps
// corrupted cycles in stored data from recursing forever.
func walk(roots []*Node, visit func(*Node) bool) {
	seen := make(map[string]bool)
	var rec func(ns []*Node) bool
	rec = func(ns []*Node) bool {
		for _, n := range ns {
			if seen[n.ID] {
				continue
			}
			seen[n.ID] = true
			if !visit(n) {
				return false
			}
			if !rec(n.Children) {
				return false
			}
		}
		return true
	}
	rec(roots)
}
