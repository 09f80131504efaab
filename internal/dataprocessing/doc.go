// Package dataprocessing reads the workbooks and CSV files an analysis runs on
// and turns them into the engine's in-memory inputs.
//
// # Components
//
//  1. Tables: any xlsx sheet or CSV file becomes a dataset.Table. The first
//     non-blank row is the header; blank rows are skipped and cells are typed
//     with dataset.Parse.
//  2. Declaration: the mapping sheet (Item, Stage, StageName, File, Column,
//     RNColumn, ID) becomes an impact.Declaration.
//  3. Bands: the band sheet (From, To, Name) becomes an ordered []impact.Band.
//     A blank bound is open: -Inf for From, +Inf for To.
//  4. Sources: every file the declaration names is loaded, concurrently, and
//     returned in first-declared order.
//
// # Usage
//
//	loader := dataprocessing.NewLoader(logger)
//	decl, err := loader.LoadDeclaration(ctx, "mapping.xlsx", "input")
//	bands, err := loader.LoadBands(ctx, "mapping.xlsx", "band")
//	sources, err := loader.LoadSources(ctx, decl, cfg.SourceDir(), "")
//
// # Error Handling
//
// A missing file is a NOT_FOUND application error, an unreadable one a
// STORAGE error and malformed content a PARSING error. Declaration problems
// that only the sheet can reveal, such as a non-numeric Stage, are reported
// as *impact.MappingError so they surface the same way as resolver errors.
package dataprocessing
