// Package photos provides the local persistence layer for photo blobs.
//
// Rows hold the owning memory id (indexed), the image bytes, the mime type,
// the display order assigned at submission and the creation timestamp.
// Photos returned by this package always carry a models.LocalBlob payload.
package photos
