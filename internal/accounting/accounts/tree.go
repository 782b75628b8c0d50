package accounts

// Node is an account with its children, used for the chart-of-accounts tree view.
type Node struct {
	Account
	Children []*Node `json:"children,omitempty"`
}

// BuildTree groups accounts under their parents, preserving input order. Accounts whose
// parent is absent from the set become roots.
func BuildTree(accounts []Account) []*Node {
	nodes := make(map[int64]*Node, len(accounts))
	for _, a := range accounts {
		nodes[a.ID] = &Node{Account: a}
	}
	roots := make([]*Node, 0)
	for _, a := range accounts {
		node := nodes[a.ID]
		if a.ParentID != nil {
			if parent, ok := nodes[*a.ParentID]; ok && parent != node {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}
