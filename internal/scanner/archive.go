package scanner

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const zipMIME = "application/zip"

// budget tracks bytes extracted for one top-level target
type budget struct {
	limit int64 // 0 = unlimited
	used  int64
}

func newBudget(limit int64) *budget {
	if limit < 0 {
		limit = 0
	}
	return &budget{limit: limit}
}

// left returns the remaining byte allowance, -1 when unlimited
func (b *budget) left() int64 {
	if b.limit == 0 {
		return -1
	}
	if b.used >= b.limit {
		return 0
	}
	return b.limit - b.used
}

// copy copies src to dst charging the budget. Declared entry sizes can lie,
// so the actual byte count is what is enforced.
func (b *budget) copy(dst io.Writer, src io.Reader) (int64, error) {
	left := b.left()
	if left < 0 {
		n, err := io.Copy(dst, src)
		b.used += n
		return n, err
	}

	n, err := io.CopyN(dst, src, left+1)
	b.used += n
	switch {
	case err == io.EOF:
		return n, nil
	case err != nil:
		return n, err
	default:
		return n, ErrExtractLimit
	}
}

// sniff checks that path really is a zip container. Formats built on zip
// (jar, docx, ...) are accepted since the detected type descends from zip.
func sniff(path string) error {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return errors.Wrap(err, "detect content type")
	}
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(zipMIME) {
			return nil
		}
	}
	return errors.Wrapf(ErrNotArchive, "detected %s", mt.String())
}

// extract unpacks the zip at zipPath into dest
func extract(zipPath, dest string, b *budget, log zerolog.Logger) error {
	if err := sniff(zipPath); err != nil {
		return err
	}

	r, err := zip.OpenReader(zipPath)
	switch {
	case errors.Is(err, zip.ErrInsecurePath) && r != nil:
		// unsafe entries are skipped one by one below
		log.Warn().Str("archive", zipPath).Msg("zip contains entries with unsafe paths")
	case err != nil:
		return errors.Wrap(err, "open zip")
	}
	defer r.Close()

	for _, f := range r.File {
		if err := extractFile(f, dest, b, log); err != nil {
			return errors.Wrapf(err, "extract %s", f.Name)
		}
	}
	return nil
}

func extractFile(f *zip.File, dest string, b *budget, log zerolog.Logger) error {
	target := filepath.Join(dest, filepath.FromSlash(f.Name))
	if !within(dest, target) {
		log.Warn().Str("entry", f.Name).Msg("skipping zip entry outside extraction dir")
		return nil
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}
	if !f.Mode().IsRegular() {
		log.Debug().Str("entry", f.Name).Str("mode", f.Mode().String()).Msg("skipping non-regular zip entry")
		return nil
	}

	if left := b.left(); left >= 0 && f.UncompressedSize64 > uint64(left) {
		return ErrExtractLimit
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := b.copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// within reports whether target is dest or inside it
func within(dest, target string) bool {
	rel, err := filepath.Rel(dest, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
