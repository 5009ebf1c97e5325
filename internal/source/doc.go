// Package source produces live capture samples without camera hardware: a
// scrolling colour-bar frame and a sine tone, paced by the wall clock at the
// configured frame rate. It stands in for a device capture session on hosts
// that have none and drives the record command end to end.
package source
