package platform

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/time/rate"

	"github.com/jonathan/wiki-generator/internal/types"
)

// ProgressFunc is called before each upload with a 1-based index.
type ProgressFunc func(current, total int, title string)

// UploadDirectory uploads every file under dir with the adapter's content
// extension. Titles come from file names with underscores turned into spaces.
// Consecutive uploads are spaced at least delay apart.
func UploadDirectory(ctx context.Context, adapter Adapter, dir string, delay time.Duration, progress ProgressFunc) (*types.BatchResult, error) {
	result := types.NewBatchResult()

	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return result, nil
	}

	fsys := os.DirFS(dir)
	files, err := doublestar.Glob(fsys, "**/*"+adapter.ContentExtension())
	if err != nil {
		return nil, &Error{Message: "failed to list content files", Cause: err}
	}
	sort.Strings(files)

	limiter := NewPacer(delay)
	for i, name := range files {
		title := types.TitleFromFileName(path.Base(name))
		if progress != nil {
			progress(i+1, len(files), title)
		}

		if err := limiter.Wait(ctx); err != nil {
			return result, err
		}

		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			result.AddFailure(title, err)
			continue
		}
		ok, err := adapter.UploadPage(ctx, title, string(data), "")
		switch {
		case err != nil:
			result.AddFailure(title, err)
		case !ok:
			result.AddFailure(title, errors.New("upload rejected"))
		default:
			result.AddSuccess(title)
		}
	}
	return result, nil
}

// NewPacer returns a limiter that lets one call through immediately and then
// one per delay. A non-positive delay disables pacing.
func NewPacer(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}
