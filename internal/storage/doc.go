// Package storage gates all object store access behind a small Gateway.
//
// Blobs live in one S3-compatible bucket, keyed entries/{owner}/{id}{ext}
// for source videos and thumbnails/{owner}/{id}.jpg for derived images. The
// gateway ensures the bucket at startup, uploads and downloads blobs, issues
// presigned read URLs, and treats deleting an absent key as a no-op so entry
// removal stays idempotent.
package storage
