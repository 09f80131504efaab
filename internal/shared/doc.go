// Package shared holds helpers used across the impactcli packages that do not
// belong to any single layer.
//
// The testutil subpackage provides:
//
//   - BufferedSlogHandler and NewTestLogger for asserting on structured logs
//   - workbook and CSV fixture writers used by the loader, service and HTTP tests
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    path := testutil.WriteWorkbook(t, t.TempDir(), "mapping.xlsx", map[string][][]any{
//	        "input": {{"Item", "Stage", "File", "Column", "ID"}},
//	    })
//	    ...
//	    testutil.AssertNoErrors(t, logs)
//	}
package shared
