package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/atri1011/datafx/internal/domain"
	"github.com/atri1011/datafx/internal/util"
	"github.com/sourcegraph/conc/pool"
)

const fileNamePrefix = "Bili-popular-analysis-"

// FileName is the download name for ext, stamped with the UTC date of now.
func FileName(ext string, now time.Time) string {
	return fileNamePrefix + util.DateStamp(now) + "." + ext
}

// SaveAll writes result into dir once per distinct format, concurrently.
// Paths come back in the order each format first appears.
func SaveAll(ctx context.Context, dir string, result *domain.AnalysisResult, formats []string, now time.Time) ([]string, error) {
	formats = uniqueFormats(formats)
	for _, format := range formats {
		if !IsSupported(format) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export dir: %w", err)
	}

	paths := make([]string, len(formats))
	p := pool.New().WithErrors().WithContext(ctx)

	for idx, format := range formats {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, FileName(format, now))
			if err := saveFile(path, format, result); err != nil {
				return fmt.Errorf("export %s: %w", format, err)
			}
			paths[idx] = path
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func uniqueFormats(formats []string) []string {
	seen := make(map[string]struct{}, len(formats))
	out := make([]string, 0, len(formats))
	for _, format := range formats {
		if _, dup := seen[format]; dup {
			continue
		}
		seen[format] = struct{}{}
		out = append(out, format)
	}
	return out
}

func saveFile(path, format string, result *domain.AnalysisResult) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	return Write(f, format, result)
}
