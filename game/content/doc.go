// Package content holds the authoring helpers for a SkyGuessr content
// directory (see package catalog for the layout).
//
// Scaffold turns a directory of freshly captured panoramas into skeleton
// location records, pointing at [0, 0] with no name, ready to be placed by
// hand. SquareMaps pads map overlays to a square canvas so the renderer can
// use a single zoom scale. Validate loads the catalogs and cross-checks them
// against the image files.
//
// Usage:
//
//	result, err := content.Scaffold("content", "hub")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("added %d locations\n", len(result.Added))
//
//	report := content.Validate("content")
//	if !report.Valid() {
//		os.Exit(1)
//	}
package content
