package constants

import (
	"bytes"
	"net/http"
	"strings"
)

// Media types accepted by the analyzer.
const (
	MediaPDF  = "application/pdf"
	MediaPNG  = "image/png"
	MediaJPEG = "image/jpeg"
	MediaTIFF = "image/tiff"
	MediaText = "text/plain"
	MediaHEIC = "image/heic"
	MediaHEIF = "image/heif"
)

// Formats group media types by acquisition strategy.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
	TXT   = "TXT"
	HEIC  = "HEIC"
)

// AllowedExtensions holds the file extensions picked up by directory batches.
var AllowedExtensions = map[string]string{
	"pdf":  MediaPDF,
	"png":  MediaPNG,
	"jpg":  MediaJPEG,
	"jpeg": MediaJPEG,
	"tif":  MediaTIFF,
	"tiff": MediaTIFF,
	"txt":  MediaText,
	"heic": MediaHEIC,
	"heif": MediaHEIF,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MediaTypeForExt returns the media type for an extension, or "" when unsupported.
func MediaTypeForExt(ext string) string {
	return AllowedExtensions[NormalizeExt(ext)]
}

// DetectMediaType keeps a specific declared type and otherwise sniffs the bytes.
func DetectMediaType(declared string, data []byte) string {
	mt := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case "", "application/octet-stream", "binary/octet-stream":
	default:
		return mt
	}
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return MediaPDF
	}
	if bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*")) {
		return MediaTIFF
	}
	if isHEIF(data) {
		return MediaHEIC
	}
	sniffed := http.DetectContentType(data)
	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = sniffed[:i]
	}
	return sniffed
}

// MapMediaToFormat returns PDF, IMAGE, TXT, HEIC or "" for unsupported media.
func MapMediaToFormat(mediaType string) string {
	switch {
	case mediaType == MediaPDF:
		return PDF
	case mediaType == MediaPNG, mediaType == MediaJPEG, mediaType == MediaTIFF:
		return IMAGE
	case mediaType == MediaText:
		return TXT
	case mediaType == MediaHEIC, mediaType == MediaHEIF:
		return HEIC
	default:
		return ""
	}
}

// isHEIF checks the ISO BMFF ftyp box for a HEIF brand.
func isHEIF(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "hevc", "hevx", "heim", "heis", "mif1", "msf1":
		return true
	}
	return false
}
