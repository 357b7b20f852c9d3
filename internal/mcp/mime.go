package mcp

import (
	"path/filepath"
	"strings"

	"github.com/Aman-CERP/ancheck/internal/store"
)

// mimeTypes maps file extensions to MIME types.
var mimeTypes = map[string]string{
	// Documents
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".rtf":  "application/rtf",

	// Images
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".ico":  "image/vnd.microsoft.icon",

	// Applications and shortcuts
	".exe": "application/vnd.microsoft.portable-executable",
	".msi": "application/x-msi",
	".lnk": "application/x-ms-shortcut",
	".url": "application/internet-shortcut",

	// Code
	".go":   "text/x-go",
	".py":   "text/x-python",
	".js":   "text/javascript",
	".ts":   "text/typescript",
	".java": "text/x-java",
	".c":    "text/x-c",
	".cpp":  "text/x-c++",
	".rs":   "text/x-rust",
	".html": "text/html",
	".css":  "text/css",
	".json": "application/json",
	".sh":   "text/x-sh",
}

// folderMimeType is reported for directories.
const folderMimeType = "inode/directory"

// MimeTypeForEntry returns the MIME type for an indexed entry. Folders
// report inode/directory; unknown extensions report
// application/octet-stream.
func MimeTypeForEntry(path string, fileType store.FileType) string {
	if fileType == store.FileTypeFolder {
		return folderMimeType
	}
	ext := strings.ToLower(filepath.Ext(path))
	if mime, ok := mimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}
