package api

import "github.com/spf13/afero"

var SanitizeFilename = sanitizeFilename

func OverloadFS(overload afero.Fs) func() {
	fsRef := fs
	fs = overload
	return func() { fs = fsRef }
}
