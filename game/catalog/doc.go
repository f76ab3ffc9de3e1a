// Package catalog loads the SkyGuessr content catalogs.
//
// A content directory holds two JSON documents and the images they refer to:
//
//	content/
//	  location_data.json        {map: {id: Location}}
//	  map_data.json             {map: {bounds, zoom}}
//	  maps/<map>.png            map overlay
//	  maps/<map>_underground.png
//	  <map>/<image>             panoramas
//
// Documents are decoded with sonic. A missing document loads as empty and is
// reported as a warning; a malformed one fails with ErrInvalidCatalog.
// Validate lists inconsistencies (mismatched keys, points outside bounds,
// missing images) without rejecting the catalog, since play only needs a map
// with at least one location.
//
// Usage:
//
//	manager, err := catalog.NewManager("public/content")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	maps, _ := manager.ListMaps()
//	info, err := manager.Refresh()
//
// Sessions hold the *engine.Catalog they were created with, so a refresh
// only affects sessions created afterwards.
package catalog
