// Package git checks out the source trees a recipe run builds from. Each
// configured repository is cloned (or, in incremental mode, fetched and hard
// reset) into its own directory below the checkout root.
package git
