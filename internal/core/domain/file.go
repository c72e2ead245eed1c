package domain

import "strings"

// UploadedFile is one caller-supplied file. It lives for a single request.
type UploadedFile struct {
	Name string
	Data []byte
}

// Extension returns the lower-cased extension of the file name without the
// leading dot. Leading dots of the base name do not start an extension, so
// ".bashrc" has none and ".config.yaml" has "yaml".
func (f UploadedFile) Extension() string {
	base := f.Name[strings.LastIndexAny(f.Name, `/\`)+1:]
	stem := strings.TrimLeft(base, ".")
	dot := strings.LastIndexByte(stem, '.')
	if dot < 0 {
		return ""
	}
	return NormalizeExt(stem[dot:])
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

type FileKind string

const (
	KindPDF   FileKind = "pdf"
	KindImage FileKind = "image"
)

// AcceptedExtensions is the upload boundary's declared extension list.
var AcceptedExtensions = []string{
	"jpg", "jpeg", "png", "pdf", "docx", "xlsx", "exe", "ex_", "bin", "zip", "msi", "pcap", "webp", "unknown",
}

var imageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"webp": {},
}

var executableExtensions = map[string]struct{}{
	"exe": {},
	"ex_": {},
	"bin": {},
}

func IsImageExt(ext string) bool {
	_, ok := imageExtensions[ext]
	return ok
}

func IsExecutableExt(ext string) bool {
	_, ok := executableExtensions[ext]
	return ok
}

func IsAcceptedExt(ext string) bool {
	for _, accepted := range AcceptedExtensions {
		if ext == accepted {
			return true
		}
	}
	return false
}

// ImageMimeType maps an image extension to the MIME type sent to OCR backends.
func ImageMimeType(ext string) string {
	switch ext {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
