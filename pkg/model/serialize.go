package model

import (
	"github.com/ohler55/ojg/oj"
)

// Snapshot renders the tree as plain data grouped by node kind, keyed
// by node path. Snapshotting is read-only and repeatable: serializing
// the same tree twice yields identical output.
func (t *Tree) Snapshot() map[string]any {
	out := make(map[string]any)
	t.Walk(func(n Node) {
		group, ok := out[string(n.Kind())].(map[string]any)
		if !ok {
			group = make(map[string]any)
			out[string(n.Kind())] = group
		}
		group[n.Path()] = describeNode(n)
	})
	return out
}

// SnapshotJSON renders the snapshot with sorted keys and stable
// indentation, suitable for debug artifacts and golden files.
func (t *Tree) SnapshotJSON() string {
	return oj.JSON(t.Snapshot(), &oj.Options{Sort: true, Indent: 2})
}

func describeNode(n Node) map[string]any {
	d := map[string]any{
		"id":      int(n.ID()),
		"kind":    string(n.Kind()),
		"summary": n.Summary(),
	}
	switch v := n.(type) {
	case *Root:
		if len(v.Attributes) > 0 {
			d["attributes"] = v.Attributes
		}
	case *Component:
		d["name"] = v.Name
		d["type"] = v.Type
		if len(v.Attributes) > 0 {
			d["attributes"] = v.Attributes
		}
	case *Property:
		d["name"] = v.Name
		if v.HasValue {
			d["value"] = v.Value
		}
		if v.HasBinding() {
			d["binding"] = int(v.Binding)
		}
		if len(v.Attributes) > 0 {
			d["attributes"] = v.Attributes
		}
	case *ExpressionBinding:
		d["expression"] = v.Expression
		if refs := v.ReferencedPaths(); len(refs) > 0 {
			d["references"] = refs
		}
	case *PropertyBinding:
		d["source"] = v.SourcePath
	case *TagBinding:
		d["tagPath"] = v.TagPath
		if v.HasPollRate {
			d["pollRate"] = v.PollRate
		}
	case *MessageHandlerScript:
		d["messageType"] = v.MessageType
		d["script"] = v.ScriptBody()
	case *CustomMethodScript:
		d["name"] = v.Name
		d["params"] = v.Params
		d["script"] = v.ScriptBody()
	case *TransformScript:
		d["index"] = v.Index
		d["script"] = v.ScriptBody()
	case *EventHandlerScript:
		d["domain"] = v.Domain
		d["event"] = v.Event
		d["script"] = v.ScriptBody()
	}
	return d
}
