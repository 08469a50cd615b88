package rbac

import "sort"

// BuildMenuTree assembles a flat menu list into a nested tree ordered by
// OrderNo at every level. Entries whose parent is not in the list surface at
// the top level, so a partial role grant still renders.
func BuildMenuTree(items []Menu) []Menu {
	present := make(map[int64]struct{}, len(items))
	for _, m := range items {
		present[m.ID] = struct{}{}
	}

	children := make(map[int64][]Menu)
	var roots []Menu
	for _, m := range items {
		m.Children = nil
		if m.ParentID != nil {
			if _, ok := present[*m.ParentID]; ok {
				children[*m.ParentID] = append(children[*m.ParentID], m)
				continue
			}
		}
		roots = append(roots, m)
	}

	sortMenus(roots)
	for i := range roots {
		kids := children[roots[i].ID]
		sortMenus(kids)
		roots[i].Children = kids
	}
	return roots
}

func sortMenus(items []Menu) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].OrderNo < items[j].OrderNo })
}

// BuildPermissionTree assembles a flat permission list into the shallow
// two-level tree of top-level permissions and their children.
func BuildPermissionTree(items []Permission) []PermissionNode {
	children := make(map[int64][]PermissionNode)
	var roots []PermissionNode
	for _, p := range items {
		node := PermissionNode{Permission: p}
		if p.ParentID != nil {
			children[*p.ParentID] = append(children[*p.ParentID], node)
			continue
		}
		roots = append(roots, node)
	}
	for i := range roots {
		roots[i].Children = children[roots[i].ID]
	}
	return roots
}
