// Package rules contains the built-in lint rules. Importing the
// package registers every rule with the lint registry:
//
//	import _ "github.com/perspective-labs/viewlint/pkg/lint/rules"
//
// Built-in rules:
//   - ScriptQuality: static analysis of embedded script bodies
//   - PollingInterval: poll rates below a configured floor
//   - NamePattern: naming convention for components
//   - BadComponentReference: dangling property and component references
package rules
