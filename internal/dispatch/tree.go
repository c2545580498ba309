package dispatch

import "strings"

// ResourceNode is one segment of the resource hierarchy built from route
// paths. Nodes are shared: two routes under /expenses reuse the same
// /expenses node.
type ResourceNode struct {
	Segment  string
	FullPath string
	Parent   *ResourceNode
	Children []*ResourceNode
}

// TreeCache memoizes resource nodes by accumulated path so repeated
// resolution of overlapping routes is linear in distinct segments.
type TreeCache struct {
	nodes map[string]*ResourceNode
	roots []*ResourceNode
}

func NewTreeCache() *TreeCache {
	return &TreeCache{nodes: make(map[string]*ResourceNode)}
}

// Roots returns the top-level nodes in first-seen order.
func (c *TreeCache) Roots() []*ResourceNode { return c.roots }

// Size reports how many distinct nodes the cache holds.
func (c *TreeCache) Size() int { return len(c.nodes) }

// ResolveResourceTree walks the path one segment at a time, creating or
// reusing a node per accumulated prefix, and returns the leaf node.
// An empty or "/" path yields nil.
func (c *TreeCache) ResolveResourceTree(path string) *ResourceNode {
	var parent *ResourceNode
	var acc strings.Builder
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg == "" {
			continue
		}
		acc.WriteString("/")
		acc.WriteString(seg)
		full := acc.String()
		node, ok := c.nodes[full]
		if !ok {
			node = &ResourceNode{Segment: seg, FullPath: full, Parent: parent}
			c.nodes[full] = node
			if parent == nil {
				c.roots = append(c.roots, node)
			} else {
				parent.Children = append(parent.Children, node)
			}
		}
		parent = node
	}
	return parent
}
