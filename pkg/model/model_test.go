package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perspective-labs/viewlint/pkg/flatten"
	"github.com/perspective-labs/viewlint/pkg/model"
)

const basicView = `{
  "custom": {},
  "params": {"machine": "A1"},
  "props": {"defaultSize": {"width": 800, "height": 600}},
  "root": {
    "type": "ia.container.coord",
    "meta": {"name": "root"},
    "props": {"style": {"classes": ""}},
    "children": [
      {
        "type": "ia.display.label",
        "meta": {"name": "StatusLabel"},
        "props": {"text": "placeholder"},
        "propConfig": {
          "props.text": {
            "binding": {
              "type": "expr",
              "config": {"expression": "{view.params.machine} + now(1000)"},
              "transforms": [
                {"type": "script", "code": "def transform(self, value, quality, timestamp):\n\treturn value"}
              ]
            }
          }
        },
        "events": {
          "dom": {
            "onClick": {
              "type": "script",
              "scope": "G",
              "config": {"script": "\tself.getSibling(\"Gauge\").props.value = 1"}
            }
          }
        }
      },
      {
        "type": "ia.chart.gauge",
        "meta": {"name": "Gauge"},
        "propConfig": {
          "props.value": {
            "binding": {
              "type": "tag",
              "config": {"tagPath": "[default]Line/Speed", "mode": "direct", "pollRate": 250}
            }
          }
        },
        "scripts": {
          "customMethods": [
            {"name": "refreshData", "params": ["interval"], "script": "\tsystem.db.runNamedQuery()"}
          ],
          "messageHandlers": [
            {"messageType": "refresh", "script": "\tself.refreshData(100)", "pageScope": true, "sessionScope": false, "viewScope": true}
          ]
        }
      }
    ]
  }
}`

func buildView(t *testing.T, src string) *model.Tree {
	t.Helper()
	doc, err := flatten.FlattenBytes([]byte(src))
	require.NoError(t, err)
	return model.Build(doc)
}

func TestBuildBasicView(t *testing.T) {
	tree := buildView(t, basicView)

	counts := tree.CountByKind()
	assert.Equal(t, 1, counts[model.KindRoot])
	assert.Equal(t, 3, counts[model.KindComponent])
	assert.Equal(t, 1, counts[model.KindExpressionBinding])
	assert.Equal(t, 1, counts[model.KindTagBinding])
	assert.Equal(t, 0, counts[model.KindPropertyBinding])
	assert.Equal(t, 1, counts[model.KindTransformScript])
	assert.Equal(t, 1, counts[model.KindCustomMethodScript])
	assert.Equal(t, 1, counts[model.KindMessageHandlerScript])
	assert.Equal(t, 1, counts[model.KindEventHandlerScript])

	n, ok := tree.Lookup("root.children[0]")
	require.True(t, ok)
	label := n.(*model.Component)
	assert.Equal(t, "StatusLabel", label.Name)
	assert.Equal(t, "ia.display.label", label.Type)

	gauge, ok := tree.ComponentByName("Gauge")
	require.True(t, ok)
	assert.Equal(t, "root.children[1]", gauge.Path())

	assert.Empty(t, tree.Warnings())
}

func TestExpressionBindingOwnership(t *testing.T) {
	tree := buildView(t, basicView)

	n, ok := tree.Lookup("root.children[0].props.text")
	require.True(t, ok)
	prop := n.(*model.Property)
	require.True(t, prop.HasBinding())
	assert.False(t, prop.HasValue, "binding supersedes the static value")

	binding := tree.Node(prop.Binding).(*model.ExpressionBinding)
	assert.Equal(t, "{view.params.machine} + now(1000)", binding.Expression)
	assert.Equal(t, []string{"view.params.machine"}, binding.ReferencedPaths())

	ms, ok := binding.PollInterval()
	require.True(t, ok)
	assert.Equal(t, 1000.0, ms)

	require.Len(t, binding.Children(), 1)
	transform := tree.Node(binding.Children()[0]).(*model.TransformScript)
	assert.Equal(t, 0, transform.Index)
	assert.Contains(t, transform.ScriptBody(), "def transform")
}

func TestTagBindingPollRate(t *testing.T) {
	tree := buildView(t, basicView)

	n, ok := tree.Lookup("root.children[1].props.value")
	require.True(t, ok)
	prop := n.(*model.Property)
	require.True(t, prop.HasBinding())

	binding := tree.Node(prop.Binding).(*model.TagBinding)
	assert.Equal(t, "[default]Line/Speed", binding.TagPath)
	ms, ok := binding.PollInterval()
	require.True(t, ok)
	assert.Equal(t, 250.0, ms)
	assert.Equal(t, "direct", binding.Config()["config.mode"])
}

func TestComponentScripts(t *testing.T) {
	tree := buildView(t, basicView)

	scripts := tree.NodesOfKind(model.ScriptKinds()...)
	byKind := make(map[model.NodeKind]model.Node)
	for _, s := range scripts {
		byKind[s.Kind()] = s
	}

	method := byKind[model.KindCustomMethodScript].(*model.CustomMethodScript)
	assert.Equal(t, "refreshData", method.Name)
	assert.Equal(t, []string{"interval"}, method.Params)
	assert.Contains(t, method.ScriptBody(), "runNamedQuery")

	handler := byKind[model.KindMessageHandlerScript].(*model.MessageHandlerScript)
	assert.Equal(t, "refresh", handler.MessageType)
	assert.True(t, handler.PageScope)
	assert.False(t, handler.SessionScope)
	assert.True(t, handler.ViewScope)

	event := byKind[model.KindEventHandlerScript].(*model.EventHandlerScript)
	assert.Equal(t, "dom", event.Domain)
	assert.Equal(t, "onClick", event.Event)
	assert.Equal(t, "dom.onClick", event.ScriptName())
	assert.Contains(t, event.ScriptBody(), `getSibling("Gauge")`)

	owner, ok := tree.OwningComponent(event.ID())
	require.True(t, ok)
	assert.Equal(t, "root.children[0]", owner.Path())
}

func TestClassifierPrecedence(t *testing.T) {
	// The "type" key directly under a component is the palette type
	// tag; the same key nested under props is a plain property.
	tree := buildView(t, `{
	  "root": {
	    "type": "ia.container.coord",
	    "props": {"type": "dropdown"}
	  }
	}`)

	root, ok := tree.Lookup("root")
	require.True(t, ok)
	assert.Equal(t, "ia.container.coord", root.(*model.Component).Type)

	n, ok := tree.Lookup("root.props.type")
	require.True(t, ok)
	prop := n.(*model.Property)
	assert.Equal(t, "dropdown", prop.Value)
}

func TestDocumentLevelProperties(t *testing.T) {
	tree := buildView(t, basicView)

	n, ok := tree.Lookup("params.machine")
	require.True(t, ok)
	prop := n.(*model.Property)
	assert.Equal(t, "A1", prop.Value)

	n, ok = tree.Lookup("props.defaultSize")
	require.True(t, ok)
	size := n.(*model.Property)
	assert.False(t, size.HasValue)
	assert.Len(t, size.Children(), 2)

	n, ok = tree.Lookup("props.defaultSize.width")
	require.True(t, ok)
	assert.Equal(t, int64(800), n.(*model.Property).Value)
}

func TestBindingOverwriteWarning(t *testing.T) {
	// The same property slot referenced through two propConfig
	// spellings resolves to one binding, with a warning.
	tree := buildView(t, `{
	  "root": {
	    "type": "ia.display.label",
	    "propConfig": {
	      "props.text": {"binding": {"type": "tag", "config": {"tagPath": "[default]A"}}},
	      "props": {"text": {"binding": {"type": "property", "config": {"path": "view.params.machine"}}}}
	    }
	  }
	}`)

	require.Len(t, tree.Warnings(), 1)
	assert.Contains(t, tree.Warnings()[0], "root.props.text")

	n, ok := tree.Lookup("root.props.text")
	require.True(t, ok)
	prop := n.(*model.Property)
	require.True(t, prop.HasBinding())

	counts := tree.CountByKind()
	assert.Equal(t, 1, counts[model.KindTagBinding]+counts[model.KindPropertyBinding])
}

func TestUnknownBindingTypeStaysOpaque(t *testing.T) {
	tree := buildView(t, `{
	  "root": {
	    "type": "ia.display.label",
	    "propConfig": {
	      "props.text": {"binding": {"type": "query", "config": {"queryPath": "Folder/Query"}}}
	    }
	  }
	}`)

	counts := tree.CountByKind()
	for _, kind := range model.BindingKinds() {
		assert.Zero(t, counts[kind])
	}

	n, ok := tree.Lookup("root.props.text")
	require.True(t, ok)
	prop := n.(*model.Property)
	assert.False(t, prop.HasBinding())
	assert.Equal(t, "query", prop.Attributes["binding.type"])
	assert.Equal(t, "Folder/Query", prop.Attributes["binding.config.queryPath"])
}

func TestNonScriptEventStaysOpaque(t *testing.T) {
	tree := buildView(t, `{
	  "root": {
	    "type": "ia.display.label",
	    "events": {
	      "dom": {"onClick": {"type": "nav", "config": {"page": "/home"}}}
	    }
	  }
	}`)

	assert.Zero(t, tree.CountByKind()[model.KindEventHandlerScript])
	root, ok := tree.Lookup("root")
	require.True(t, ok)
	comp := root.(*model.Component)
	assert.Equal(t, "nav", comp.Attributes["events.dom.onClick.type"])
	assert.Equal(t, "/home", comp.Attributes["events.dom.onClick.config.page"])
}

func TestWalkOrder(t *testing.T) {
	tree := buildView(t, `{
	  "root": {
	    "type": "ia.container.coord",
	    "children": [
	      {"type": "ia.display.label", "meta": {"name": "First"}},
	      {"type": "ia.display.label", "meta": {"name": "Second"}}
	    ]
	  }
	}`)

	var paths []string
	tree.Walk(func(n model.Node) {
		paths = append(paths, n.Path())
	})
	assert.Equal(t, []string{"", "root", "root.children[0]", "root.children[1]"}, paths)
}

func TestSnapshotStable(t *testing.T) {
	tree := buildView(t, basicView)
	first := tree.SnapshotJSON()
	second := tree.SnapshotJSON()
	assert.Equal(t, first, second)
	assert.Contains(t, first, "expression_binding")
}

func TestBuilderSkipsUnparseablePath(t *testing.T) {
	b := model.NewBuilder()
	b.Add("root..props", 1)
	tree := b.Finish()
	require.Len(t, tree.Warnings(), 1)
	assert.Contains(t, tree.Warnings()[0], "unparseable")
}

func TestComponentsByType(t *testing.T) {
	tree := buildView(t, basicView)
	byType := tree.ComponentsByType()
	assert.Equal(t, 1, byType["ia.container.coord"])
	assert.Equal(t, 1, byType["ia.display.label"])
	assert.Equal(t, 1, byType["ia.chart.gauge"])
}
