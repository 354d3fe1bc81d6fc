package rules_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perspective-labs/viewlint/pkg/flatten"
	"github.com/perspective-labs/viewlint/pkg/lint"
	_ "github.com/perspective-labs/viewlint/pkg/lint/rules"
)

// onlyRules builds a config with every registered rule disabled except
// the named ones.
func onlyRules(names ...string) *lint.Config {
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	cfg := lint.NewConfig()
	for _, n := range lint.RuleNames() {
		if !keep[n] {
			cfg.Disable(n)
		}
	}
	return cfg
}

func runLint(t *testing.T, cfg *lint.Config, src string) *lint.Results {
	t.Helper()
	doc, err := flatten.FlattenBytes([]byte(src))
	require.NoError(t, err)
	engine, errs := lint.NewEngine(cfg)
	require.Empty(t, errs)
	res, err := engine.Process(doc)
	require.NoError(t, err)
	return res
}

func TestBuiltinsRegistered(t *testing.T) {
	names := lint.RuleNames()
	for _, want := range []string{"BadComponentReference", "NamePattern", "PollingInterval", "ScriptQuality"} {
		assert.Contains(t, names, want)
	}
}

func TestNamePatternPascalCase(t *testing.T) {
	res := runLint(t, onlyRules("NamePattern"), `{
	  "root": {
	    "type": "ia.container.coord",
	    "meta": {"name": "root"},
	    "children": [
	      {"type": "ia.input.button", "meta": {"name": "myButton"}},
	      {"type": "ia.input.button", "meta": {"name": "MyButton"}}
	    ]
	  }
	}`)

	diags := res.Errors()["NamePattern"]
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, `"myButton"`)
	assert.Contains(t, diags[0].Message, "root.children[0]")
	assert.Contains(t, diags[0].Message, `"MyButton"`)
	assert.Zero(t, res.WarningCount())
}

func TestNamePatternPropertyTarget(t *testing.T) {
	cfg := onlyRules("NamePattern")
	cfg.SetRuleOptions("NamePattern", map[string]any{
		"targets":    []string{"property"},
		"convention": "camelCase",
	})
	res := runLint(t, cfg, `{
	  "root": {
	    "type": "ia.container.coord",
	    "meta": {"name": "not_pascal"},
	    "children": [
	      {
	        "type": "ia.display.label",
	        "meta": {"name": "TankLabel"},
	        "custom": {"BadName": 1, "goodName": 2}
	      }
	    ]
	  }
	}`)

	diags := res.Errors()["NamePattern"]
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, `property name "BadName"`)
	// Components are not checked when only properties are targeted.
	for _, d := range diags {
		assert.NotContains(t, d.Message, "not_pascal")
	}
}

func TestNamePatternConventions(t *testing.T) {
	tests := []struct {
		convention string
		name       string
		ok         bool
	}{
		{"PascalCase", "TankLevel", true},
		{"PascalCase", "tankLevel", false},
		{"camelCase", "tankLevel", true},
		{"camelCase", "TankLevel", false},
		{"snake_case", "tank_level", true},
		{"snake_case", "tank-level", false},
		{"kebab-case", "tank-level", true},
		{"UPPER_CASE", "TANK_LEVEL", true},
		{"UPPER_CASE", "tank_level", false},
	}
	for _, tt := range tests {
		t.Run(tt.convention+"/"+tt.name, func(t *testing.T) {
			cfg := onlyRules("NamePattern")
			cfg.SetRuleOptions("NamePattern", map[string]any{"convention": tt.convention})
			res := runLint(t, cfg, `{
			  "root": {
			    "type": "ia.container.coord",
			    "children": [{"type": "ia.display.label", "meta": {"name": "`+tt.name+`"}}]
			  }
			}`)
			if tt.ok {
				assert.Zero(t, res.Total())
			} else {
				assert.Len(t, res.Errors()["NamePattern"], 1)
			}
		})
	}
}

func TestNamePatternCustomPattern(t *testing.T) {
	cfg := onlyRules("NamePattern")
	cfg.SetRuleOptions("NamePattern", map[string]any{"pattern": `^lbl[A-Z]\w*$`})
	res := runLint(t, cfg, `{
	  "root": {
	    "type": "ia.container.coord",
	    "children": [
	      {"type": "ia.display.label", "meta": {"name": "lblStatus"}},
	      {"type": "ia.display.label", "meta": {"name": "Status"}}
	    ]
	  }
	}`)
	diags := res.Errors()["NamePattern"]
	require.Len(t, diags, 1)
	assert.Equal(t, "root.children[1]", diags[0].NodePath)
}

func TestNamePatternConfigErrors(t *testing.T) {
	for name, kwargs := range map[string]map[string]any{
		"unknown convention": {"convention": "SpongeCase"},
		"bad pattern":        {"pattern": "["},
	} {
		t.Run(name, func(t *testing.T) {
			cfg := onlyRules("NamePattern")
			cfg.SetRuleOptions("NamePattern", kwargs)
			_, errs := lint.NewEngine(cfg)
			require.Len(t, errs, 1)
			var cfgErr *lint.RuleConfigError
			assert.ErrorAs(t, errs[0], &cfgErr)
		})
	}
}

const pollView = `{
  "root": {
    "type": "ia.container.coord",
    "propConfig": {
      "props.fast": {"binding": {"type": "tag", "config": {"tagPath": "[default]A", "pollRate": %RATE%}}},
      "props.slow": {"binding": {"type": "tag", "config": {"tagPath": "[default]B", "pollRate": 1000}}}
    }
  }
}`

func TestPollingInterval(t *testing.T) {
	src := func(rate string) string {
		return strings.ReplaceAll(pollView, "%RATE%", rate)
	}

	t.Run("below minimum warns once", func(t *testing.T) {
		res := runLint(t, onlyRules("PollingInterval"), src("100"))
		diags := res.Warnings()["PollingInterval"]
		require.Len(t, diags, 1)
		assert.Contains(t, diags[0].Message, "100ms")
		assert.Contains(t, diags[0].NodePath, "props.fast")
	})

	t.Run("at or above minimum is clean", func(t *testing.T) {
		res := runLint(t, onlyRules("PollingInterval"), src("2000"))
		assert.Zero(t, res.Total())
	})

	t.Run("error interval escalates", func(t *testing.T) {
		cfg := onlyRules("PollingInterval")
		cfg.SetRuleOptions("PollingInterval", map[string]any{
			"min_interval":   1000,
			"error_interval": 500,
		})
		res := runLint(t, cfg, src("100"))
		require.Len(t, res.Errors()["PollingInterval"], 1)
	})

	t.Run("expression now() polls", func(t *testing.T) {
		res := runLint(t, onlyRules("PollingInterval"), `{
		  "root": {
		    "type": "ia.display.label",
		    "propConfig": {
		      "props.text": {"binding": {"type": "expr", "config": {"expression": "now(250)"}}}
		    }
		  }
		}`)
		require.Len(t, res.Warnings()["PollingInterval"], 1)
	})

	t.Run("invalid kwargs rejected", func(t *testing.T) {
		cfg := onlyRules("PollingInterval")
		cfg.SetRuleOptions("PollingInterval", map[string]any{"min_interval": -5})
		_, errs := lint.NewEngine(cfg)
		require.Len(t, errs, 1)
	})
}

func TestBadComponentReference(t *testing.T) {
	const view = `{
	  "custom": {"threshold": 10},
	  "params": {"machine": "A1"},
	  "root": {
	    "type": "ia.container.coord",
	    "meta": {"name": "root"},
	    "children": [
	      {
	        "type": "ia.display.label",
	        "meta": {"name": "StatusLabel"},
	        "props": {"text": ""},
	        "propConfig": {
	          "props.text": {"binding": {"type": "expr", "config": {"expression": "{view.params.machine} + {view.params.missing}"}}}
	        }
	      },
	      {
	        "type": "ia.chart.gauge",
	        "meta": {"name": "Gauge"},
	        "props": {"value": 0},
	        "propConfig": {
	          "props.max": {"binding": {"type": "property", "config": {"path": "this.props.nope"}}}
	        },
	        "events": {
	          "dom": {"onClick": {"type": "script", "config": {"script": "\tself.getSibling(\"StatusLabel\").props.text = \"hi\"\n\tself.getSibling(\"Ghost\").props.text = \"boo\"\n"}}}
	        }
	      }
	    ]
	  }
	}`

	res := runLint(t, onlyRules("BadComponentReference"), view)
	diags := res.Errors()["BadComponentReference"]
	require.Len(t, diags, 3)

	var refs []string
	for _, d := range diags {
		refs = append(refs, d.Message)
	}
	joined := refs[0] + refs[1] + refs[2]
	assert.Contains(t, joined, "view.params.missing")
	assert.Contains(t, joined, "this.props.nope")
	assert.Contains(t, joined, `"Ghost"`)
	assert.NotContains(t, joined, "view.params.machine")
	assert.NotContains(t, joined, "StatusLabel")
}

func TestScriptQuality(t *testing.T) {
	t.Run("syntax error is an error", func(t *testing.T) {
		res := runLint(t, onlyRules("ScriptQuality"), `{
		  "root": {
		    "type": "ia.display.label",
		    "scripts": {
		      "messageHandlers": [{"messageType": "refresh", "script": "\tif payload ==\n\t\tpass\n"}]
		    }
		  }
		}`)
		diags := res.Errors()["ScriptQuality"]
		require.Len(t, diags, 1)
		assert.Contains(t, diags[0].Message, "syntax error")
		assert.Equal(t, 1, diags[0].Line)
	})

	t.Run("clean handler passes", func(t *testing.T) {
		res := runLint(t, onlyRules("ScriptQuality"), `{
		  "root": {
		    "type": "ia.display.label",
		    "scripts": {
		      "messageHandlers": [{"messageType": "refresh", "script": "\tself.props.text = payload[\"text\"]\n"}]
		    }
		  }
		}`)
		assert.Zero(t, res.Total())
	})

	t.Run("unused transform params warn", func(t *testing.T) {
		res := runLint(t, onlyRules("ScriptQuality"), `{
		  "root": {
		    "type": "ia.display.label",
		    "propConfig": {
		      "props.text": {"binding": {"type": "expr", "config": {"expression": "1"}, "transforms": [{"type": "script", "code": "\treturn value\n"}]}}
		    }
		  }
		}`)
		diags := res.Warnings()["ScriptQuality"]
		require.Len(t, diags, 2)
		assert.Contains(t, diags[0].Message, "never used")
	})
}

func TestScriptQualityKwargs(t *testing.T) {
	const printView = `{
	  "root": {
	    "type": "ia.display.label",
	    "scripts": {
	      "messageHandlers": [{"messageType": "refresh", "script": "\tprint(payload)\n"}]
	    }
	  }
	}`

	t.Run("print call warns by default", func(t *testing.T) {
		res := runLint(t, onlyRules("ScriptQuality"), printView)
		diags := res.Warnings()["ScriptQuality"]
		require.Len(t, diags, 1)
		assert.Contains(t, diags[0].Message, "print call")
	})

	t.Run("allow_print suppresses print findings", func(t *testing.T) {
		cfg := onlyRules("ScriptQuality")
		cfg.SetRuleOptions("ScriptQuality", map[string]any{"allow_print": true})
		res := runLint(t, cfg, printView)
		assert.Zero(t, res.Total())
	})

	t.Run("max_body_lines warns on long bodies", func(t *testing.T) {
		cfg := onlyRules("ScriptQuality")
		cfg.SetRuleOptions("ScriptQuality", map[string]any{"max_body_lines": 2})
		res := runLint(t, cfg, `{
		  "root": {
		    "type": "ia.display.label",
		    "scripts": {
		      "messageHandlers": [{"messageType": "refresh", "script": "\ta = payload[\"a\"]\n\tb = a + 1\n\tself.props.text = b\n"}]
		    }
		  }
		}`)
		diags := res.Warnings()["ScriptQuality"]
		require.Len(t, diags, 1)
		assert.Contains(t, diags[0].Message, "consider splitting")
	})
}

func TestRuleIsolation(t *testing.T) {
	// A view violating several rules at once; disabling all but one
	// yields only that rule's findings.
	const view = `{
	  "root": {
	    "type": "ia.container.coord",
	    "children": [{"type": "ia.input.button", "meta": {"name": "bad name"}}],
	    "propConfig": {
	      "props.x": {"binding": {"type": "tag", "config": {"tagPath": "[default]A", "pollRate": 50}}}
	    }
	  }
	}`

	res := runLint(t, onlyRules("PollingInterval"), view)
	assert.Len(t, res.Warnings()["PollingInterval"], 1)
	assert.Empty(t, res.Errors()["NamePattern"])

	res = runLint(t, onlyRules("NamePattern"), view)
	assert.Len(t, res.Errors()["NamePattern"], 1)
	assert.Empty(t, res.Warnings()["PollingInterval"])
}
