package model

import (
	"path/filepath"
	"strings"
)

// Recognized font and archive extensions (matched case-insensitively)
var (
	FontExtensions    = []string{".ttf", ".otf"}
	ArchiveExtensions = []string{".zip"}
)

// FontFile is a discovered font ready to be installed
type FontFile struct {
	Path   string // absolute path to the font (a staged copy for archive fonts)
	Name   string // base file name, also the destination name in the font directory
	Origin string // archive chain the font came from, e.g. "a.zip!b.zip"; empty for loose files
}

// NewFontFile creates a FontFile for path
func NewFontFile(path, origin string) FontFile {
	return FontFile{
		Path:   path,
		Name:   filepath.Base(path),
		Origin: origin,
	}
}

// FromArchive reports whether the font was extracted from an archive
func (f FontFile) FromArchive() bool {
	return f.Origin != ""
}

// String returns the font name with its archive origin if any
func (f FontFile) String() string {
	if f.Origin == "" {
		return f.Name
	}
	return f.Origin + "!" + f.Name
}

// ScanTarget is one user selected input
type ScanTarget struct {
	Path            string
	IncludeArchives bool // recurse into .zip files found while walking a directory
}

// Targets builds scan targets for paths sharing the same archive flag
func Targets(paths []string, includeArchives bool) []ScanTarget {
	targets := make([]ScanTarget, 0, len(paths))
	for _, p := range paths {
		targets = append(targets, ScanTarget{Path: p, IncludeArchives: includeArchives})
	}
	return targets
}

// IsFontName returns true if name ends with a recognized font extension
func IsFontName(name string) bool {
	return hasExtension(name, FontExtensions)
}

// IsArchiveName returns true if name ends with a recognized archive extension
func IsArchiveName(name string) bool {
	return hasExtension(name, ArchiveExtensions)
}

func hasExtension(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
