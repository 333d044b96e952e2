package tree

import "planner/internal/model"

// CanMove reports whether folderID may be reparented under newParentID
// without becoming its own ancestor. Moving to the root (nil parent) is
// always allowed. The check walks upward from the proposed parent; if the
// walk loops through a pre-existing cycle before reaching folderID, the
// corruption predates this move and the move is not blocked.
func CanMove(folders []model.Folder, folderID string, newParentID *string) bool {
	if newParentID == nil {
		return true
	}

	parents := make(map[string]*string, len(folders))
	for _, f := range folders {
		parents[f.ID] = f.ParentID
	}

	seen := make(map[string]bool)
	cur := newParentID
	for cur != nil {
		id := *cur
		if id == folderID {
			return false
		}
		if seen[id] {
			return true
		}
		seen[id] = true
		next, ok := parents[id]
		if !ok {
			break // dangling parent, chain ends here
		}
		cur = next
	}
	return true
}
