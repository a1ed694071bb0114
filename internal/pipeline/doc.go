// Package pipeline runs the per-conference discovery state machine
// (search, two hops of link following, content analysis) over a bounded pool
// of conferences and reports the resulting candidates.
package pipeline
