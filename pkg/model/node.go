// Package model builds a typed semantic tree from a flattened view
// document. Nodes live in an arena addressed by integer IDs, with a
// separate path index for O(1) lookup; ownership edges form a strict
// tree while cross-references stay plain path strings.
package model

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// NodeKind tags a node variant. The set is closed; these strings also
// key the serialized snapshot and statistics output.
type NodeKind string

// Node kinds.
const (
	KindRoot                 NodeKind = "root"
	KindComponent            NodeKind = "component"
	KindProperty             NodeKind = "property"
	KindExpressionBinding    NodeKind = "expression_binding"
	KindPropertyBinding      NodeKind = "property_binding"
	KindTagBinding           NodeKind = "tag_binding"
	KindMessageHandlerScript NodeKind = "message_handler_script"
	KindCustomMethodScript   NodeKind = "custom_method_script"
	KindTransformScript      NodeKind = "transform_script"
	KindEventHandlerScript   NodeKind = "event_handler_script"
)

// AllKinds returns every node kind in a stable order.
func AllKinds() []NodeKind {
	return []NodeKind{
		KindRoot,
		KindComponent,
		KindProperty,
		KindExpressionBinding,
		KindPropertyBinding,
		KindTagBinding,
		KindMessageHandlerScript,
		KindCustomMethodScript,
		KindTransformScript,
		KindEventHandlerScript,
	}
}

// ParseKind resolves a kind tag string.
func ParseKind(s string) (NodeKind, bool) {
	for _, k := range AllKinds() {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// BindingKinds returns the binding node kinds.
func BindingKinds() []NodeKind {
	return []NodeKind{KindExpressionBinding, KindPropertyBinding, KindTagBinding}
}

// ScriptKinds returns the script node kinds.
func ScriptKinds() []NodeKind {
	return []NodeKind{
		KindMessageHandlerScript,
		KindCustomMethodScript,
		KindTransformScript,
		KindEventHandlerScript,
	}
}

// NodeID addresses a node in the tree arena.
type NodeID int

// InvalidID marks an absent node reference.
const InvalidID NodeID = -1

// Node is the interface all tree nodes implement.
type Node interface {
	ID() NodeID
	Kind() NodeKind
	Path() string
	Parent() NodeID
	// Children returns owned node IDs in document order. The slice is
	// shared; callers must not modify it.
	Children() []NodeID
	// Summary is a one-line description used by debug output.
	Summary() string
}

// baseNode carries the fields shared by every variant.
type baseNode struct {
	id       NodeID
	path     string
	parent   NodeID
	children []NodeID
}

func (n *baseNode) ID() NodeID         { return n.id }
func (n *baseNode) Path() string       { return n.path }
func (n *baseNode) Parent() NodeID     { return n.parent }
func (n *baseNode) Children() []NodeID { return n.children }

// Root is the single document root. Document-level parameters and
// properties hang off it, as does the root component.
type Root struct {
	baseNode
	Attributes map[string]any
}

func (n *Root) Kind() NodeKind { return KindRoot }

func (n *Root) Summary() string {
	return fmt.Sprintf("view root (%d children)", len(n.children))
}

// Component is a nested UI component with a palette type tag, a
// property bag, child components, and attached scripts.
type Component struct {
	baseNode
	Name       string
	Type       string
	Attributes map[string]any
}

func (n *Component) Kind() NodeKind { return KindComponent }

func (n *Component) Summary() string {
	name := n.Name
	if name == "" {
		name = "(unnamed)"
	}
	return fmt.Sprintf("component %s type=%s", name, n.Type)
}

// Property is a leaf-bearing node holding either a static value or
// ownership of exactly one binding. Nested property values produce
// nested Property nodes; array elements appear as index-named
// properties with IsIndex set.
type Property struct {
	baseNode
	Name       string
	IsIndex    bool
	Value      any
	HasValue   bool
	Binding    NodeID
	Attributes map[string]any
}

func (n *Property) Kind() NodeKind { return KindProperty }

// HasBinding reports whether the property owns a binding. A binding
// takes precedence over any static value that was also present.
func (n *Property) HasBinding() bool { return n.Binding != InvalidID }

func (n *Property) Summary() string {
	if n.HasBinding() {
		return fmt.Sprintf("property %s (bound)", n.Name)
	}
	if n.HasValue {
		return fmt.Sprintf("property %s = %v", n.Name, n.Value)
	}
	return fmt.Sprintf("property %s (%d children)", n.Name, len(n.children))
}

// PollCapable is implemented by binding variants that refresh on a
// configured interval.
type PollCapable interface {
	// PollInterval returns the configured refresh period in
	// milliseconds, and whether one is configured.
	PollInterval() (float64, bool)
}

// Binding is the common surface of the binding variants.
type Binding interface {
	Node
	// OwnerProperty is the property that owns this binding.
	OwnerProperty() NodeID
	// Config returns the raw binding configuration fields.
	Config() map[string]any
}

type bindingNode struct {
	baseNode
	config map[string]any
}

func (n *bindingNode) OwnerProperty() NodeID  { return n.parent }
func (n *bindingNode) Config() map[string]any { return n.config }

// ExpressionBinding computes a property value from an expression.
// Property references inside the expression are written {path}.
type ExpressionBinding struct {
	bindingNode
	Expression string
}

func (n *ExpressionBinding) Kind() NodeKind { return KindExpressionBinding }

func (n *ExpressionBinding) Summary() string {
	return fmt.Sprintf("expression binding: %s", truncate(n.Expression, 60))
}

var exprRefPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// ReferencedPaths extracts the {path} references from the expression,
// in order of appearance.
func (n *ExpressionBinding) ReferencedPaths() []string {
	var refs []string
	for _, m := range exprRefPattern.FindAllStringSubmatch(n.Expression, -1) {
		refs = append(refs, strings.TrimSpace(m[1]))
	}
	return refs
}

var exprPollPattern = regexp.MustCompile(`\bnow\(\s*(\d+(?:\.\d+)?)\s*\)`)

// PollInterval reports the smallest now(ms) interval in the
// expression, which drives the binding's refresh rate.
func (n *ExpressionBinding) PollInterval() (float64, bool) {
	ms := 0.0
	found := false
	for _, m := range exprPollPattern.FindAllStringSubmatch(n.Expression, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if !found || v < ms {
			ms = v
			found = true
		}
	}
	return ms, found
}

// PropertyBinding mirrors the value of another property.
type PropertyBinding struct {
	bindingNode
	SourcePath string
}

func (n *PropertyBinding) Kind() NodeKind { return KindPropertyBinding }

func (n *PropertyBinding) Summary() string {
	return fmt.Sprintf("property binding -> %s", n.SourcePath)
}

// TagBinding binds a property to an external tag, optionally polled on
// a configured rate.
type TagBinding struct {
	bindingNode
	TagPath     string
	PollRate    float64
	HasPollRate bool
}

func (n *TagBinding) Kind() NodeKind { return KindTagBinding }

func (n *TagBinding) PollInterval() (float64, bool) {
	return n.PollRate, n.HasPollRate
}

func (n *TagBinding) Summary() string {
	if n.HasPollRate {
		return fmt.Sprintf("tag binding -> %s (poll %gms)", n.TagPath, n.PollRate)
	}
	return fmt.Sprintf("tag binding -> %s", n.TagPath)
}

// Script is the common surface of the script variants.
type Script interface {
	Node
	// ScriptBody is the script source text.
	ScriptBody() string
	// ScriptName identifies the handler (method name, message type,
	// event name, or transform slot).
	ScriptName() string
}

type scriptNode struct {
	baseNode
	body string
}

func (n *scriptNode) ScriptBody() string { return n.body }

// MessageHandlerScript runs when a message of its type is broadcast to
// one of the subscribed scopes.
type MessageHandlerScript struct {
	scriptNode
	MessageType  string
	PageScope    bool
	SessionScope bool
	ViewScope    bool
}

func (n *MessageHandlerScript) Kind() NodeKind     { return KindMessageHandlerScript }
func (n *MessageHandlerScript) ScriptName() string { return n.MessageType }

func (n *MessageHandlerScript) Summary() string {
	return fmt.Sprintf("message handler %q", n.MessageType)
}

// CustomMethodScript is a named method attached to a component.
type CustomMethodScript struct {
	scriptNode
	Name   string
	Params []string
}

func (n *CustomMethodScript) Kind() NodeKind     { return KindCustomMethodScript }
func (n *CustomMethodScript) ScriptName() string { return n.Name }

func (n *CustomMethodScript) Summary() string {
	return fmt.Sprintf("custom method %s(%s)", n.Name, strings.Join(n.Params, ", "))
}

// TransformScript post-processes a binding's value before it reaches
// the bound property.
type TransformScript struct {
	scriptNode
	Index int
}

func (n *TransformScript) Kind() NodeKind     { return KindTransformScript }
func (n *TransformScript) ScriptName() string { return fmt.Sprintf("transform[%d]", n.Index) }

func (n *TransformScript) Summary() string {
	return fmt.Sprintf("script transform [%d]", n.Index)
}

// EventHandlerScript runs in response to a component event.
type EventHandlerScript struct {
	scriptNode
	Domain string
	Event  string
}

func (n *EventHandlerScript) Kind() NodeKind     { return KindEventHandlerScript }
func (n *EventHandlerScript) ScriptName() string { return n.Domain + "." + n.Event }

func (n *EventHandlerScript) Summary() string {
	return fmt.Sprintf("event handler %s.%s", n.Domain, n.Event)
}

// Tree is the arena of nodes built from one flattened document. It is
// immutable once built and not safe for concurrent use.
type Tree struct {
	nodes    []Node
	byPath   map[string]NodeID
	byName   map[string][]NodeID
	rootID   NodeID
	warnings []string
}

// Node returns the node for an ID.
func (t *Tree) Node(id NodeID) Node {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return t.nodes[id]
}

// Root returns the document root node.
func (t *Tree) Root() *Root {
	return t.nodes[t.rootID].(*Root)
}

// Lookup resolves a node by its canonical path.
func (t *Tree) Lookup(path string) (Node, bool) {
	id, ok := t.byPath[path]
	if !ok {
		return nil, false
	}
	return t.nodes[id], true
}

// ComponentByName returns the first component (in document order)
// whose meta name matches.
func (t *Tree) ComponentByName(name string) (*Component, bool) {
	ids := t.byName[name]
	if len(ids) == 0 {
		return nil, false
	}
	return t.nodes[ids[0]].(*Component), true
}

// OwningComponent walks up from a node to the nearest enclosing
// component (or the root when the node hangs off the document itself).
func (t *Tree) OwningComponent(id NodeID) (Node, bool) {
	for cur := id; cur != InvalidID; {
		n := t.Node(cur)
		if n == nil {
			return nil, false
		}
		if n.Kind() == KindComponent || n.Kind() == KindRoot {
			return n, true
		}
		cur = n.Parent()
	}
	return nil, false
}

// Warnings returns build warnings (ownership conflicts resolved by
// overwriting).
func (t *Tree) Warnings() []string { return t.warnings }

// Walk performs the canonical pre-order traversal: parent before
// children, children in document order.
func (t *Tree) Walk(visit func(Node)) {
	t.walkFrom(t.rootID, visit)
}

func (t *Tree) walkFrom(id NodeID, visit func(Node)) {
	n := t.Node(id)
	if n == nil {
		return
	}
	visit(n)
	for _, child := range n.Children() {
		t.walkFrom(child, visit)
	}
}

// NodesOfKind returns nodes of the given kinds in traversal order.
func (t *Tree) NodesOfKind(kinds ...NodeKind) []Node {
	want := make(map[NodeKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	var out []Node
	t.Walk(func(n Node) {
		if want[n.Kind()] {
			out = append(out, n)
		}
	})
	return out
}

// CountByKind tallies reachable nodes per kind.
func (t *Tree) CountByKind() map[NodeKind]int {
	counts := make(map[NodeKind]int)
	t.Walk(func(n Node) {
		counts[n.Kind()]++
	})
	return counts
}

// ComponentsByType tallies components per palette type tag.
func (t *Tree) ComponentsByType() map[string]int {
	counts := make(map[string]int)
	t.Walk(func(n Node) {
		if c, ok := n.(*Component); ok && c.Type != "" {
			counts[c.Type]++
		}
	})
	return counts
}

// Len returns the number of reachable nodes.
func (t *Tree) Len() int {
	n := 0
	t.Walk(func(Node) { n++ })
	return n
}

// ComponentNames returns all component meta names in document order.
func (t *Tree) ComponentNames() []string {
	names := make([]string, 0, len(t.byName))
	for name := range t.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
