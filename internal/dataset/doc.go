// Package dataset provides the in-memory tabular model shared by the loaders,
// the impact engine and the exporters.
//
// A Table is an ordered list of named columns and rows of Values. A Value is
// null, a number or a string; Compare gives the natural ordering used when
// grouping and sorting dimension values (numbers numerically, strings
// lexicographically, nulls last).
package dataset
