// Package ffprobe runs ffprobe against segment and export files and decodes
// the JSON it prints.
//
// Segments are inspected after every writer finish to learn their real
// duration and which tracks they carry; the merged export is inspected for
// its final duration and size.
package ffprobe
