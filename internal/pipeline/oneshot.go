package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"fuelbill/internal"
)

var supportedExtensions = map[string]struct{}{".xlsx": {}, ".xls": {}, ".eml": {}}

func SupportedExtension(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ReadGridFromFile checks the extension before touching the file so an
// unsupported input fails without being read.
func ReadGridFromFile(path string) (internal.Grid, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !SupportedExtension(path) {
		return nil, eris.Wrapf(ErrUnsupportedFormat, "extension %q", ext)
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read input %s", path)
	}
	return ParseGrid(ext, blob)
}

// DefaultOutputPath is "<stem>_处理结果.xlsx" next to the input, or inside
// outputDir when it is set.
func DefaultOutputPath(inputPath, outputDir string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	dir := filepath.Dir(inputPath)
	if strings.TrimSpace(outputDir) != "" {
		dir = outputDir
	}
	return filepath.Join(dir, stem+"_处理结果.xlsx")
}
