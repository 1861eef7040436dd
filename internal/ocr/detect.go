package ocr

import (
	"bytes"
	"path/filepath"

	"github.com/joseph-ayodele/ashwini-cargo/constants"
)

var heifBrands = [][]byte{
	[]byte("heic"), []byte("heix"), []byte("hevc"), []byte("hevx"),
	[]byte("heif"), []byte("mif1"), []byte("msf1"),
}

// DetectFormat sniffs data and falls back to the filename extension.
// It returns constants.PDF, constants.IMAGE or "" plus the normalized extension.
func DetectFormat(data []byte, filename string) (format string, ext string) {
	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return constants.PDF, "pdf"
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return constants.IMAGE, "png"
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return constants.IMAGE, "jpg"
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return constants.IMAGE, "tiff"
	case bytes.HasPrefix(data, []byte("BM")):
		return constants.IMAGE, "bmp"
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return constants.IMAGE, "webp"
	case len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp")):
		for _, brand := range heifBrands {
			if bytes.Equal(data[8:12], brand) {
				return constants.IMAGE, "heic"
			}
		}
	}
	ext = constants.NormalizeExt(filepath.Ext(filename))
	return constants.MapExtToFormat(ext), ext
}
