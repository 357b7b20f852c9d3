package scanner

import (
	"os"
	"strings"

	"github.com/Aman-CERP/ancheck/internal/store"
)

var (
	appExtensions      = extSet("exe", "msi", "appx", "msix")
	shortcutExtensions = extSet("lnk", "url")
	documentExtensions = extSet("pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx",
		"txt", "md", "csv", "rtf", "odt", "ods", "odp")
	imageExtensions = extSet("png", "jpg", "jpeg", "gif", "bmp", "svg", "webp", "ico")
	codeExtensions  = extSet("rs", "py", "js", "ts", "jsx", "tsx", "java", "c", "cpp",
		"h", "cs", "go", "rb", "php", "html", "css", "json", "xml", "yaml", "yml", "toml")
)

func extSet(exts ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		m[e] = struct{}{}
	}
	return m
}

// Classify assigns a file type from the extension and full path.
// The directory check stats filepath on disk.
func Classify(extension, filepath string) store.FileType {
	return classify(extension, filepath, func() bool {
		info, err := os.Stat(filepath)
		return err == nil && info.IsDir()
	})
}

// ClassifyWithDir is Classify with the directory check supplied by the
// caller, for entries that were already stat'ed during the walk.
func ClassifyWithDir(extension, filepath string, isDir bool) store.FileType {
	return classify(extension, filepath, func() bool { return isDir })
}

// classify evaluates the rules in order; the first match wins. Extension
// rules for apps and shortcuts run before the directory check, so a
// directory named "setup.exe" is an app.
func classify(extension, filepath string, isDir func() bool) store.FileType {
	ext := strings.ToLower(extension)

	if _, ok := appExtensions[ext]; ok {
		return store.FileTypeApp
	}
	if _, ok := shortcutExtensions[ext]; ok {
		return store.FileTypeShortcut
	}
	if isDir() {
		return store.FileTypeFolder
	}
	if _, ok := documentExtensions[ext]; ok {
		return store.FileTypeDocument
	}
	if _, ok := imageExtensions[ext]; ok {
		return store.FileTypeImage
	}
	if _, ok := codeExtensions[ext]; ok {
		return store.FileTypeCode
	}
	// Start Menu entries are launchable even without an .exe suffix
	if strings.Contains(strings.ToLower(filepath), "start menu") {
		return store.FileTypeApp
	}
	return store.FileTypeOther
}

// Extension returns the lower-cased suffix of name without the dot.
// Dotfiles such as ".bashrc" have no extension.
func Extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}
