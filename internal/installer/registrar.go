package installer

import (
	"os"

	"github.com/rs/zerolog"
)

// fileRegistrar treats a readable regular file in the font directory as
// registered, which is how macOS and fontconfig pick up user fonts.
type fileRegistrar struct {
	log     zerolog.Logger
	refresh func() error
}

func (r fileRegistrar) Register(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		r.log.Debug().Err(err).Str("path", path).Msg("font not readable")
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

func (r fileRegistrar) NotifyFontsChanged() {
	if r.refresh == nil {
		return
	}
	if err := r.refresh(); err != nil {
		r.log.Warn().Err(err).Msg("font cache refresh failed")
	}
}
