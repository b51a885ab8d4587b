// Package models defines the catalog entities and persisted records used by likesort.
//
// Catalog entities are transient and fetched per run:
//   - [Track] : a saved track with its artist references
//   - [Artist] : an artist and its ordered genre tags
//   - [PlaylistRef] : an existing remote playlist
//   - [Page] : one page of a paginated listing
//
// [SyncRun] is the only persisted entity. It implements [Model] and is stored through a [Repository].
package models
