package model

import (
	"github.com/perspective-labs/viewlint/pkg/flatten"
)

// pathClass identifies the structural role a flattened path plays
// relative to the node it is classified under.
type pathClass int

const (
	classOpaque pathClass = iota
	classRootComponent
	classComponentType
	classComponentName
	classChildComponent
	classPropertyChain
	classPropConfig
	classComponentScript
	classEventScript
)

// classification is the outcome of matching a path suffix against the
// shape-rule table. Rule names surface in builder warnings so conflicts
// are traceable to the rule that produced a node.
type classification struct {
	rule  string
	class pathClass

	// classChildComponent
	childIndex int
	// classPropertyChain
	marker string
	chain  []flatten.Segment
	// classPropConfig
	propRef     []flatten.Segment
	bindingRest []flatten.Segment
	// classComponentScript
	scriptCategory string
	scriptIndex    int
	// classEventScript
	eventDomain string
	eventName   string
	// field segments below the matched construct
	rest []flatten.Segment
}

type shapeRule struct {
	name  string
	match func(segs []flatten.Segment, value any) (classification, bool)
}

// componentShapeRules classify path suffixes under a component node.
// The table is evaluated top to bottom and the first match wins; order
// here is the documented precedence, so a path like "type" is always
// the palette type tag and never a property named "type".
var componentShapeRules = []shapeRule{
	{"component-type", matchComponentType},
	{"component-name", matchComponentName},
	{"child-component", matchChildComponent},
	{"property-subtree", matchPropertySubtree},
	{"prop-config", matchPropConfig},
	{"component-scripts", matchComponentScripts},
	{"event-handler", matchEventHandler},
}

// rootShapeRules classify path suffixes under the document root. The
// root component lives under the "root" key; parameters and custom
// values hang directly off the document.
var rootShapeRules = []shapeRule{
	{"root-component", matchRootComponent},
	{"property-subtree", matchPropertySubtree},
	{"prop-config", matchPropConfig},
}

// classifyUnder matches the remaining path segments below a component
// or the document root. Unmatched paths classify as opaque attributes.
func classifyUnder(kind NodeKind, segs []flatten.Segment, value any) classification {
	table := componentShapeRules
	if kind == KindRoot {
		table = rootShapeRules
	}
	for _, rule := range table {
		if c, ok := rule.match(segs, value); ok {
			c.rule = rule.name
			return c
		}
	}
	return classification{rule: "opaque-attribute", class: classOpaque, rest: segs}
}

func isKey(seg flatten.Segment, key string) bool {
	return !seg.IsIndex && seg.Key == key
}

func matchRootComponent(segs []flatten.Segment, _ any) (classification, bool) {
	if len(segs) == 0 || !isKey(segs[0], "root") {
		return classification{}, false
	}
	return classification{class: classRootComponent, rest: segs[1:]}, true
}

func matchComponentType(segs []flatten.Segment, value any) (classification, bool) {
	if len(segs) != 1 || !isKey(segs[0], "type") {
		return classification{}, false
	}
	if _, ok := value.(string); !ok {
		return classification{}, false
	}
	return classification{class: classComponentType}, true
}

func matchComponentName(segs []flatten.Segment, value any) (classification, bool) {
	if len(segs) != 2 || !isKey(segs[0], "meta") || !isKey(segs[1], "name") {
		return classification{}, false
	}
	if _, ok := value.(string); !ok {
		return classification{}, false
	}
	return classification{class: classComponentName}, true
}

func matchChildComponent(segs []flatten.Segment, _ any) (classification, bool) {
	if len(segs) < 2 || !isKey(segs[0], "children") || !segs[1].IsIndex {
		return classification{}, false
	}
	return classification{
		class:      classChildComponent,
		childIndex: segs[1].Index,
		rest:       segs[2:],
	}, true
}

// property subtree markers; each key under them materializes a
// Property node.
var propertyMarkers = []string{"props", "custom", "params", "position"}

func matchPropertySubtree(segs []flatten.Segment, _ any) (classification, bool) {
	if len(segs) < 2 || segs[0].IsIndex {
		return classification{}, false
	}
	for _, marker := range propertyMarkers {
		if segs[0].Key == marker {
			return classification{
				class:  classPropertyChain,
				marker: marker,
				chain:  segs[1:],
			}, true
		}
	}
	return classification{}, false
}

func matchPropConfig(segs []flatten.Segment, _ any) (classification, bool) {
	if len(segs) < 3 || !isKey(segs[0], "propConfig") {
		return classification{}, false
	}
	// The segments between propConfig and the binding key reference the
	// bound property, e.g. propConfig.props.text.binding.type.
	for i := 1; i < len(segs); i++ {
		if isKey(segs[i], "binding") {
			if i == 1 || len(segs) == i+1 {
				return classification{}, false
			}
			return classification{
				class:       classPropConfig,
				propRef:     segs[1:i],
				bindingRest: segs[i+1:],
			}, true
		}
	}
	return classification{}, false
}

func matchComponentScripts(segs []flatten.Segment, _ any) (classification, bool) {
	if len(segs) < 3 || !isKey(segs[0], "scripts") || segs[1].IsIndex || !segs[2].IsIndex {
		return classification{}, false
	}
	category := segs[1].Key
	if category != "customMethods" && category != "messageHandlers" {
		return classification{}, false
	}
	return classification{
		class:          classComponentScript,
		scriptCategory: category,
		scriptIndex:    segs[2].Index,
		rest:           segs[3:],
	}, true
}

func matchEventHandler(segs []flatten.Segment, _ any) (classification, bool) {
	if len(segs) < 3 || !isKey(segs[0], "events") || segs[1].IsIndex || segs[2].IsIndex {
		return classification{}, false
	}
	return classification{
		class:       classEventScript,
		eventDomain: segs[1].Key,
		eventName:   segs[2].Key,
		rest:        segs[3:],
	}, true
}
