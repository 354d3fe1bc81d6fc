package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/perspective-labs/viewlint/pkg/flatten"
)

// Builder assembles a Tree from flattened entries. Entries are
// consumed incrementally in document order; constructs that span
// several entries (bindings, scripts) are accumulated and materialized
// by Finish. Building never fails: malformed or unrecognized paths
// degrade to opaque attributes or warnings instead of errors.
type Builder struct {
	tree *Tree

	bindings     map[string]*pendingBinding
	bindingOrder []string
	scripts      map[string]*pendingScript
	scriptOrder  []string
	finished     bool
}

type pendingBinding struct {
	path          string
	owner         NodeID
	discriminator string
	hasDisc       bool
	config        map[string]any
	transforms    map[int]map[string]any
}

type pendingScript struct {
	category string
	owner    NodeID
	path     string
	index    int
	domain   string
	event    string
	fields   map[string]any
}

// NewBuilder returns a builder with an empty tree containing only the
// document root.
func NewBuilder() *Builder {
	t := &Tree{
		byPath: make(map[string]NodeID),
		byName: make(map[string][]NodeID),
	}
	root := &Root{baseNode: baseNode{path: "", parent: InvalidID}}
	t.rootID = t.addNode(root)
	return &Builder{
		tree:     t,
		bindings: make(map[string]*pendingBinding),
		scripts:  make(map[string]*pendingScript),
	}
}

// Build assembles a tree from a complete flattened document.
func Build(doc *flatten.Document) *Tree {
	b := NewBuilder()
	doc.Walk(func(path string, value any) {
		b.Add(path, value)
	})
	return b.Finish()
}

// Add consumes one flattened entry.
func (b *Builder) Add(path string, value any) {
	segs, err := flatten.ParsePath(path)
	if err != nil {
		b.warnf("skipping unparseable path %q: %v", path, err)
		return
	}
	b.place(segs, value)
}

// Finish materializes accumulated bindings and scripts and returns the
// tree. The builder must not be reused afterwards.
func (b *Builder) Finish() *Tree {
	if b.finished {
		return b.tree
	}
	b.finished = true
	for _, key := range b.bindingOrder {
		b.materializeBinding(b.bindings[key])
	}
	for _, key := range b.scriptOrder {
		b.materializeScript(b.scripts[key])
	}
	return b.tree
}

func (b *Builder) warnf(format string, args ...any) {
	b.tree.warnings = append(b.tree.warnings, fmt.Sprintf(format, args...))
}

// place walks the path from the document root, descending through
// component boundaries until a shape rule consumes the remainder.
func (b *Builder) place(segs []flatten.Segment, value any) {
	cur := b.tree.rootID
	i := 0
	for {
		node := b.tree.Node(cur)
		c := classifyUnder(node.Kind(), segs[i:], value)
		switch c.class {
		case classRootComponent:
			cur = b.ensureComponent(cur, segs[:i+1])
			i++
			if i == len(segs) {
				return
			}
		case classChildComponent:
			cur = b.ensureComponent(cur, segs[:i+2])
			i += 2
			if i == len(segs) {
				return
			}
		case classComponentType:
			node.(*Component).Type = value.(string)
			return
		case classComponentName:
			comp := node.(*Component)
			comp.Name = value.(string)
			b.tree.byName[comp.Name] = append(b.tree.byName[comp.Name], comp.id)
			return
		case classPropertyChain:
			b.placeProperty(cur, segs[:i+1], c.chain, value, true)
			return
		case classPropConfig:
			b.placePropConfig(cur, segs, c, value)
			return
		case classComponentScript:
			b.placeComponentScript(cur, segs[:len(segs)-len(c.rest)], c, value)
			return
		case classEventScript:
			b.placeEventScript(cur, segs[:len(segs)-len(c.rest)], c, value)
			return
		default:
			b.setAttribute(node, flatten.JoinPath(c.rest), value)
			return
		}
	}
}

func (b *Builder) setAttribute(node Node, key string, value any) {
	switch n := node.(type) {
	case *Root:
		if n.Attributes == nil {
			n.Attributes = make(map[string]any)
		}
		n.Attributes[key] = value
	case *Component:
		if n.Attributes == nil {
			n.Attributes = make(map[string]any)
		}
		n.Attributes[key] = value
	case *Property:
		if n.Attributes == nil {
			n.Attributes = make(map[string]any)
		}
		n.Attributes[key] = value
	default:
		b.warnf("dropping attribute %q on %s node %s", key, node.Kind(), node.Path())
	}
}

// addNode places a node in the arena and indexes its path.
func (t *Tree) addNode(n Node) NodeID {
	id := NodeID(len(t.nodes))
	switch v := n.(type) {
	case *Root:
		v.id = id
	case *Component:
		v.id = id
	case *Property:
		v.id = id
	case *ExpressionBinding:
		v.id = id
	case *PropertyBinding:
		v.id = id
	case *TagBinding:
		v.id = id
	case *MessageHandlerScript:
		v.id = id
	case *CustomMethodScript:
		v.id = id
	case *TransformScript:
		v.id = id
	case *EventHandlerScript:
		v.id = id
	}
	t.nodes = append(t.nodes, n)
	if _, exists := t.byPath[n.Path()]; !exists {
		t.byPath[n.Path()] = id
	}
	return id
}

func (t *Tree) attachChild(parent, child NodeID) {
	switch v := t.nodes[parent].(type) {
	case *Root:
		v.children = append(v.children, child)
	case *Component:
		v.children = append(v.children, child)
	case *Property:
		v.children = append(v.children, child)
	case *ExpressionBinding:
		v.children = append(v.children, child)
	case *PropertyBinding:
		v.children = append(v.children, child)
	case *TagBinding:
		v.children = append(v.children, child)
	}
}

func (b *Builder) ensureComponent(parent NodeID, absSegs []flatten.Segment) NodeID {
	path := flatten.JoinPath(absSegs)
	if id, ok := b.tree.byPath[path]; ok {
		return id
	}
	comp := &Component{baseNode: baseNode{path: path, parent: parent}}
	id := b.tree.addNode(comp)
	b.tree.attachChild(parent, id)
	return id
}

// placeProperty materializes the property chain below an owner node,
// creating intermediate container properties as needed. When terminal
// is true the final property receives the entry value.
func (b *Builder) placeProperty(owner NodeID, prefix []flatten.Segment, chain []flatten.Segment, value any, terminal bool) NodeID {
	parent := owner
	segs := append([]flatten.Segment(nil), prefix...)
	for _, seg := range chain {
		segs = append(segs, seg)
		path := flatten.JoinPath(segs)
		id, ok := b.tree.byPath[path]
		if !ok {
			prop := &Property{
				baseNode: baseNode{path: path, parent: parent},
				Binding:  InvalidID,
			}
			if seg.IsIndex {
				prop.Name = fmt.Sprintf("[%d]", seg.Index)
				prop.IsIndex = true
			} else {
				prop.Name = seg.Key
			}
			id = b.tree.addNode(prop)
			b.tree.attachChild(parent, id)
		}
		parent = id
	}
	if terminal {
		prop := b.tree.Node(parent).(*Property)
		if !isEmptyContainer(value) && !prop.HasBinding() {
			prop.Value = value
			prop.HasValue = true
		}
	}
	return parent
}

// isEmptyContainer recognizes the sentinel entries the flattener
// emits for empty objects and arrays.
func isEmptyContainer(v any) bool {
	switch c := v.(type) {
	case map[string]any:
		return len(c) == 0
	case []any:
		return len(c) == 0
	}
	return false
}

// placePropConfig accumulates one field of a binding configuration.
// The property reference keys under propConfig are dotted paths (for
// example "props.text"), so each key expands into path segments.
func (b *Builder) placePropConfig(owner NodeID, segs []flatten.Segment, c classification, value any) {
	compPrefix := segs[:len(segs)-len(c.propRef)-len(c.bindingRest)-2]
	chain := expandPropRef(c.propRef)
	if len(chain) < 2 {
		node := b.tree.Node(owner)
		b.setAttribute(node, flatten.JoinPath(segs[len(compPrefix):]), value)
		return
	}
	refPrefix := append(append([]flatten.Segment(nil), compPrefix...), chain[0])
	propID := b.placeProperty(owner, refPrefix, chain[1:], nil, false)

	bindingPath := flatten.JoinPath(segs[:len(segs)-len(c.bindingRest)])
	pb, ok := b.bindings[bindingPath]
	if !ok {
		pb = &pendingBinding{
			path:       bindingPath,
			owner:      propID,
			config:     make(map[string]any),
			transforms: make(map[int]map[string]any),
		}
		b.bindings[bindingPath] = pb
		b.bindingOrder = append(b.bindingOrder, bindingPath)
	}

	rest := c.bindingRest
	switch {
	case len(rest) == 1 && isKey(rest[0], "type"):
		disc, _ := value.(string)
		if pb.hasDisc && pb.discriminator != disc {
			b.warnf("binding at %s already classified as %q; overwriting with %q",
				bindingPath, pb.discriminator, disc)
		}
		pb.discriminator = disc
		pb.hasDisc = true
	case len(rest) >= 2 && isKey(rest[0], "transforms") && rest[1].IsIndex:
		idx := rest[1].Index
		if pb.transforms[idx] == nil {
			pb.transforms[idx] = make(map[string]any)
		}
		pb.transforms[idx][flatten.JoinPath(rest[2:])] = value
	default:
		pb.config[flatten.JoinPath(rest)] = value
	}
}

// expandPropRef splits dotted reference keys into individual segments.
func expandPropRef(ref []flatten.Segment) []flatten.Segment {
	var out []flatten.Segment
	for _, seg := range ref {
		if seg.IsIndex {
			out = append(out, seg)
			continue
		}
		for _, part := range strings.Split(seg.Key, ".") {
			out = append(out, flatten.KeySegment(part))
		}
	}
	return out
}

func (b *Builder) placeComponentScript(owner NodeID, prefix []flatten.Segment, c classification, value any) {
	path := flatten.JoinPath(prefix)
	key := "script|" + path
	ps, ok := b.scripts[key]
	if !ok {
		ps = &pendingScript{
			category: c.scriptCategory,
			owner:    owner,
			path:     path,
			index:    c.scriptIndex,
			fields:   make(map[string]any),
		}
		b.scripts[key] = ps
		b.scriptOrder = append(b.scriptOrder, key)
	}
	ps.fields[flatten.JoinPath(c.rest)] = value
}

func (b *Builder) placeEventScript(owner NodeID, prefix []flatten.Segment, c classification, value any) {
	path := flatten.JoinPath(prefix)
	key := "event|" + path
	ps, ok := b.scripts[key]
	if !ok {
		ps = &pendingScript{
			category: "events",
			owner:    owner,
			path:     path,
			domain:   c.eventDomain,
			event:    c.eventName,
			fields:   make(map[string]any),
		}
		b.scripts[key] = ps
		b.scriptOrder = append(b.scriptOrder, key)
	}
	ps.fields[flatten.JoinPath(c.rest)] = value
}

// materializeBinding turns an accumulated binding configuration into a
// typed binding node on its owner property. Unknown discriminators
// degrade to opaque attributes on the property.
func (b *Builder) materializeBinding(pb *pendingBinding) {
	prop := b.tree.Node(pb.owner).(*Property)

	var node Node
	base := bindingNode{
		baseNode: baseNode{path: pb.path, parent: pb.owner},
		config:   pb.config,
	}
	switch pb.discriminator {
	case "expr", "expression":
		node = &ExpressionBinding{
			bindingNode: base,
			Expression:  stringField(pb.config, "config.expression"),
		}
	case "property":
		node = &PropertyBinding{
			bindingNode: base,
			SourcePath:  stringField(pb.config, "config.path"),
		}
	case "tag":
		rate, hasRate := numberField(pb.config, "config.pollRate")
		node = &TagBinding{
			bindingNode: base,
			TagPath:     stringField(pb.config, "config.tagPath"),
			PollRate:    rate,
			HasPollRate: hasRate,
		}
	default:
		if pb.hasDisc {
			b.setAttribute(prop, "binding.type", pb.discriminator)
		}
		for k, v := range pb.config {
			b.setAttribute(prop, "binding."+k, v)
		}
		b.attachTransforms(pb, pb.owner)
		return
	}

	id := b.tree.addNode(node)
	if prop.HasBinding() {
		old := b.tree.Node(prop.Binding)
		b.warnf("property %s already owns a %s; overwriting with %s",
			prop.Path(), old.Kind(), node.Kind())
		b.detachChild(pb.owner, prop.Binding)
	}
	prop.Binding = id
	if prop.HasValue {
		prop.Value = nil
		prop.HasValue = false
	}
	b.tree.attachChild(pb.owner, id)
	b.attachTransforms(pb, id)
}

// attachTransforms materializes transform slots under the binding node
// (or directly under the property when the binding itself could not be
// typed). Non-script transforms stay in the binding configuration.
func (b *Builder) attachTransforms(pb *pendingBinding, parent NodeID) {
	indexes := make([]int, 0, len(pb.transforms))
	for idx := range pb.transforms {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	for _, idx := range indexes {
		fields := pb.transforms[idx]
		path := fmt.Sprintf("%s.transforms[%d]", pb.path, idx)
		kind, _ := fields["type"].(string)
		if kind != "script" {
			for k, v := range fields {
				pb.config[fmt.Sprintf("transforms[%d].%s", idx, k)] = v
			}
			continue
		}
		node := &TransformScript{
			scriptNode: scriptNode{
				baseNode: baseNode{path: path, parent: parent},
				body:     stringField(fields, "code"),
			},
			Index: idx,
		}
		id := b.tree.addNode(node)
		b.tree.attachChild(parent, id)
	}
}

// materializeScript turns an accumulated script slot into a typed
// script node on its owning component.
func (b *Builder) materializeScript(ps *pendingScript) {
	var node Node
	base := scriptNode{baseNode: baseNode{path: ps.path, parent: ps.owner}}
	switch ps.category {
	case "customMethods":
		base.body = stringField(ps.fields, "script")
		node = &CustomMethodScript{
			scriptNode: base,
			Name:       stringField(ps.fields, "name"),
			Params:     indexedStrings(ps.fields, "params"),
		}
	case "messageHandlers":
		base.body = stringField(ps.fields, "script")
		node = &MessageHandlerScript{
			scriptNode:   base,
			MessageType:  stringField(ps.fields, "messageType"),
			PageScope:    boolField(ps.fields, "pageScope"),
			SessionScope: boolField(ps.fields, "sessionScope"),
			ViewScope:    boolField(ps.fields, "viewScope"),
		}
	case "events":
		// Only script-typed event configurations become script nodes.
		if kind := stringField(ps.fields, "type"); kind != "script" {
			owner := b.tree.Node(ps.owner)
			for k, v := range ps.fields {
				b.setAttribute(owner, fmt.Sprintf("events.%s.%s.%s", ps.domain, ps.event, k), v)
			}
			return
		}
		base.body = stringField(ps.fields, "config.script")
		node = &EventHandlerScript{
			scriptNode: base,
			Domain:     ps.domain,
			Event:      ps.event,
		}
	default:
		return
	}
	id := b.tree.addNode(node)
	b.tree.attachChild(ps.owner, id)
}

func (b *Builder) detachChild(parent, child NodeID) {
	n := b.tree.nodes[parent]
	kids := n.Children()
	for i, id := range kids {
		if id == child {
			pruned := append(append([]NodeID(nil), kids[:i]...), kids[i+1:]...)
			switch v := n.(type) {
			case *Root:
				v.children = pruned
			case *Component:
				v.children = pruned
			case *Property:
				v.children = pruned
			}
			break
		}
	}
	old := b.tree.nodes[child]
	if id, ok := b.tree.byPath[old.Path()]; ok && id == child {
		delete(b.tree.byPath, old.Path())
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolField(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}

func numberField(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// indexedStrings collects prefix[0], prefix[1], ... values in index
// order.
func indexedStrings(m map[string]any, prefix string) []string {
	type item struct {
		idx int
		val string
	}
	var items []item
	for k, v := range m {
		var idx int
		if n, err := fmt.Sscanf(k, prefix+"[%d]", &idx); err != nil || n != 1 {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		items = append(items, item{idx, s})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].idx < items[j].idx })
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.val)
	}
	return out
}
