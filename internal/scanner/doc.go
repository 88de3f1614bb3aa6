// Package scanner finds font files in folders and zip archives.
//
// Archives are extracted into temporary directories that live only while
// that archive is scanned; nested archives inside them are always followed.
// Fonts found inside archives are copied into a run-scoped Stage so the
// install stage can still read them after extraction directories are gone.
// Unreadable targets and broken archives are recorded as faults and scanning
// carries on with the rest.
package scanner
