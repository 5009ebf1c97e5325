// Package upload posts the merged video to the delivery endpoint as a
// multipart form. The file is streamed from disk, never buffered whole, and
// only an HTTP 200 counts as delivered. There is a single attempt per call.
package upload
