// Package imaging produces the bounded renditions stored with every photo.
//
// A Generator turns an original image into a preview (long side at most
// 1920px, about 300KB) and a thumbnail (200px, about 20KB). Both are JPEG
// and are produced concurrently. When a rendition can not be produced the
// preview falls back to the original bytes and the thumbnail falls back to
// the preview, so Generate only fails on empty input or a cancelled context.
//
// Originals below the preview pass-through size are used as the preview
// unchanged, byte for byte.
package imaging
