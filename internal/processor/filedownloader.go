package processor

import (
	"fmt"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/types"
)

// FileDownloader writes a Response's body to
// <baseDir>/<subDir(s)>/<filename> (§4.7). Filename resolution order:
// an explicit request attr, the Content-Disposition filename parameter,
// then the URL's trailing path segment. The write is atomic from the
// caller's perspective: content lands in a temp file first, then renamed
// into place (grounded on the teacher's internal/media/downloader.go).
func FileDownloader(baseDir string, subDirAttr, filenameAttr string) Processor {
	return func(resp *types.Response) ([]*types.Request, error) {
		filename := resolveFilename(resp, filenameAttr)
		dir := baseDir
		if subDirAttr != "" {
			if sub, ok := resp.Request.Attrs[subDirAttr].(string); ok && sub != "" {
				dir = filepath.Join(baseDir, sub)
			}
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &types.ExtractionError{URL: resp.Request.URL, Err: err}
		}

		target := filepath.Join(dir, filename)
		if err := writeAtomic(target, resp.Content); err != nil {
			return nil, &types.ExtractionError{URL: resp.Request.URL, Err: err}
		}
		return nil, nil
	}
}

func resolveFilename(resp *types.Response, filenameAttr string) string {
	if filenameAttr != "" {
		if name, ok := resp.Request.Attrs[filenameAttr].(string); ok && name != "" {
			return name
		}
	}
	if disposition := resp.Header("Content-Disposition"); disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := strings.Trim(params["filename"], `"`); name != "" {
				return name
			}
		}
	}
	if u, err := url.Parse(resp.Request.URL); err == nil {
		if name := path.Base(u.Path); name != "" && name != "." && name != "/" {
			return name
		}
	}
	return "download"
}

func writeAtomic(target string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
