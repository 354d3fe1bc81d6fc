// Package lint provides the view linting framework.
//
// # Architecture
//
// Linting runs in three stages:
//
//  1. pkg/flatten turns a view.json document into ordered path/value
//     entries.
//  2. pkg/model classifies the entries into a typed node tree
//     (components, properties, bindings, scripts).
//  3. This package dispatches registered rules over one depth-first
//     traversal of that tree and aggregates the findings.
//
// # Rule Registration
//
// Rules register factories via init() when their package is imported:
//
//	import _ "github.com/perspective-labs/viewlint/pkg/lint/rules"
//
// A factory receives the rule's configured kwargs and returns a
// configured instance:
//
//	func init() {
//		lint.Register("PollingInterval", NewPollingIntervalRule)
//	}
//
// # Configuration
//
// Use Config to control which rules run, their kwargs, and severity:
//
//	config := lint.NewConfig()
//	config.Disable("ScriptQuality")
//	config.SetSeverity("NamePattern", lint.SeverityError)
//	config.SetRuleOptions("PollingInterval", map[string]any{"min_interval": 500})
//
// # Running
//
//	engine, errs := lint.NewEngine(config)
//	results, err := engine.Process(doc)
//
// Engines are single-threaded; for parallel batches construct one
// engine per worker.
package lint
