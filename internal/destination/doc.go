// Package destination guards the output file of a recording: it applies the
// overwrite policy, asks the operator when the policy says so, and holds an
// advisory lock so two recorders never write the same file.
package destination
