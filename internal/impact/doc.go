// Package impact compares the same entities observed at several calculation
// stages. It resolves a flat comparison declaration into per-Item mappings,
// merges the source tables into one row per entity, computes absolute and
// relative differences between stages, classifies them into declared bands
// and aggregates them into distributions, stage totals and breakdowns with
// subtotal and grand total rows.
//
// Loading files, rendering reports and serving HTTP live in adapter packages.
package impact
