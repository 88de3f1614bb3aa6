//go:build windows

package installer

import (
	"unsafe"

	"github.com/rs/zerolog"
	"golang.org/x/sys/windows"
)

var (
	gdi32  = windows.NewLazySystemDLL("gdi32.dll")
	user32 = windows.NewLazySystemDLL("user32.dll")

	procAddFontResourceExW  = gdi32.NewProc("AddFontResourceExW")
	procSendMessageTimeoutW = user32.NewProc("SendMessageTimeoutW")
)

const (
	hwndBroadcast    = 0xFFFF
	wmFontChange     = 0x001D
	smtoAbortIfHung  = 0x0002
	broadcastTimeout = 1000 // ms
)

// gdiRegistrar registers fonts with GDI for the current session
type gdiRegistrar struct {
	log zerolog.Logger
}

// NewRegistrar returns the registrar for Windows
func NewRegistrar(fontDir string, log zerolog.Logger) Registrar {
	return gdiRegistrar{log: log}
}

func (r gdiRegistrar) Register(path string) bool {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return false
	}
	// flags 0 so the font is public, FR_PRIVATE fonts vanish with the process
	n, _, callErr := procAddFontResourceExW.Call(uintptr(unsafe.Pointer(p)), 0, 0)
	if n == 0 {
		r.log.Debug().Err(callErr).Str("path", path).Msg("AddFontResourceExW failed")
		return false
	}
	return true
}

func (r gdiRegistrar) NotifyFontsChanged() {
	var result uintptr
	ret, _, callErr := procSendMessageTimeoutW.Call(
		hwndBroadcast,
		wmFontChange,
		0,
		0,
		smtoAbortIfHung,
		broadcastTimeout,
		uintptr(unsafe.Pointer(&result)),
	)
	if ret == 0 {
		r.log.Warn().Err(callErr).Msg("WM_FONTCHANGE broadcast failed")
	}
}
