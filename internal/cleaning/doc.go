// Package cleaning implements the quality-scoring and cleaning-pipeline
// engine: it measures how dirty a table is, decides whether the table is
// salvageable, applies an ordered sequence of repair transformations, and
// re-measures quality to produce a before/after report.
//
// The package is pure with respect to its inputs: Score never mutates a
// table, and the pipeline works on a clone. It performs no I/O and holds
// no state between calls, so one Pipeline may clean many tables
// concurrently as long as each call owns its table.
package cleaning
