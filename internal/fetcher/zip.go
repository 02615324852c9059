package fetcher

import (
	"archive/zip"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// ExtractZIPSingle unpacks an archive that holds exactly one file, the
// layout HUD uses for zipped workbook releases, and returns the path to
// the extracted file. The entry is written under destDir regardless of
// any directory components in its archived name.
func ExtractZIPSingle(zipPath, destDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrapf(err, "zip: open %s", zipPath)
	}
	defer r.Close() //nolint:errcheck

	var entry *zip.File
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if entry != nil {
			return "", eris.Errorf("zip: %s holds more than one file", zipPath)
		}
		entry = f
	}
	if entry == nil {
		return "", eris.Errorf("zip: %s holds no files", zipPath)
	}

	rc, err := entry.Open()
	if err != nil {
		return "", eris.Wrapf(err, "zip: open entry %s", entry.Name)
	}
	defer rc.Close() //nolint:errcheck

	dest := filepath.Join(destDir, filepath.Base(entry.Name))
	if _, err := saveTo(rc, dest); err != nil {
		return "", err
	}
	return dest, nil
}
