package chit

import "github.com/davidad/chit/chit_errors"

// Context is a naming tree: interior nodes map names to children, leaves
// hold a Luid. It rides along with every Version; patches do not populate
// it yet.
type Context struct {
	children map[string]*Context
	leaf     Luid
	isLeaf   bool
}

func NewContext() *Context {
	return &Context{children: map[string]*Context{}}
}

func (c *Context) IsLeaf() bool {
	return c.isLeaf
}

// Get resolves a full path to the Luid at its leaf. A path that ends on an
// interior node, or runs past a leaf, resolves to nothing.
func (c *Context) Get(path []string) (Luid, bool) {
	node := c
	for _, name := range path {
		if node.isLeaf {
			return 0, false
		}
		next, ok := node.children[name]
		if !ok {
			return 0, false
		}
		node = next
	}
	if !node.isLeaf {
		return 0, false
	}
	return node.leaf, true
}

// Bind places luid at path, creating interior nodes as needed. It refuses
// to turn an existing interior node into a leaf or to descend through one.
func (c *Context) Bind(path []string, luid Luid) error {
	if len(path) == 0 {
		return chit_errors.ErrBadContextPath
	}
	node := c
	for i, name := range path {
		if node.isLeaf {
			return chit_errors.ErrBadContextPath
		}
		next, ok := node.children[name]
		last := i == len(path)-1
		switch {
		case !ok && last:
			node.children[name] = &Context{leaf: luid, isLeaf: true}
			return nil
		case !ok:
			next = NewContext()
			node.children[name] = next
		case last:
			if !next.isLeaf {
				return chit_errors.ErrBadContextPath
			}
			next.leaf = luid
			return nil
		}
		node = next
	}
	return nil
}

// Unbind removes the leaf at path; interior nodes left empty stay.
func (c *Context) Unbind(path []string) bool {
	if len(path) == 0 || c.isLeaf {
		return false
	}
	node := c
	for _, name := range path[:len(path)-1] {
		next, ok := node.children[name]
		if !ok || next.isLeaf {
			return false
		}
		node = next
	}
	last := path[len(path)-1]
	if leaf, ok := node.children[last]; ok && leaf.isLeaf {
		delete(node.children, last)
		return true
	}
	return false
}

func (c *Context) Clone() *Context {
	if c.isLeaf {
		return &Context{leaf: c.leaf, isLeaf: true}
	}
	clone := &Context{children: make(map[string]*Context, len(c.children))}
	for name, child := range c.children {
		clone.children[name] = child.Clone()
	}
	return clone
}
