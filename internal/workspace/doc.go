// Package workspace owns the directories a recipe run works in: the persistent
// checkout root holding the source trees, and the scratch output directory
// that is reset at the start of every run.
package workspace
