package behavior

import (
	"fmt"
	"strings"
)

// TreeSnapshot is a point-in-time view of the last status observed at each
// node of a tree. Status is only meaningful when Ran is true; a node that
// was never ticked within the current activation reports Ran false.
type TreeSnapshot struct {
	Node     string         `json:"node"`
	Status   Status         `json:"status"`
	Ran      bool           `json:"ran"`
	Children []TreeSnapshot `json:"children,omitempty"`
}

type snapshotter interface {
	snapshot() TreeSnapshot
}

// Snapshot walks the tree rooted at root and collects each node's last
// observed status. Nodes from outside this package appear as leaves with
// no recorded status.
func Snapshot(root Node) TreeSnapshot {
	if s, ok := root.(snapshotter); ok {
		return s.snapshot()
	}
	return TreeSnapshot{Node: root.Name()}
}

func childSnapshots(children []Node) []TreeSnapshot {
	if len(children) == 0 {
		return nil
	}
	snaps := make([]TreeSnapshot, len(children))
	for i, child := range children {
		snaps[i] = Snapshot(child)
	}
	return snaps
}

// Render formats the snapshot as an indented text trace, one node per
// line.
func (t TreeSnapshot) Render() string {
	var sb strings.Builder
	t.render(&sb, 0)
	return sb.String()
}

func (t TreeSnapshot) render(sb *strings.Builder, depth int) {
	status := "not run"
	if t.Ran {
		status = t.Status.String()
	}
	fmt.Fprintf(sb, "%s%s - %s\n", strings.Repeat("    ", depth), t.Node, status)
	for _, child := range t.Children {
		child.render(sb, depth+1)
	}
}
