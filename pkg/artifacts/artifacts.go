package artifacts

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	pb "github.com/cheggaaa/pb/v3"
)

// Primary is the trained model file. Its presence at the latest
// artifacts directory is the run's success signal.
const Primary = "model.pkl"

type finalizeOption struct {
	progressOut io.Writer
}

type FinalizeOption func(*finalizeOption) *finalizeOption

// WithProgressOut redirects the copy progress bar (default: stderr).
func WithProgressOut(w io.Writer) FinalizeOption {
	return func(o *finalizeOption) *finalizeOption {
		if w != nil {
			o.progressOut = w
		}
		return o
	}
}

// Finalize snapshots the latest artifact set.
//
// It creates a sibling directory of latestDir named after stamp and
// copies every regular file of latestDir into it, preserving file mode
// and modification time. Subdirectories and irregular files are left
// alone. An existing snapshot is never overwritten: finding one is an
// error, since stamps key immutable snapshots.
//
// Returns the snapshot directory path.
func Finalize(latestDir string, stamp Stamp, opt ...FinalizeOption) (string, error) {
	o := &finalizeOption{progressOut: os.Stderr}
	for _, op := range opt {
		o = op(o)
	}

	snapshotDir := filepath.Join(filepath.Dir(latestDir), stamp.String())
	if _, err := os.Stat(snapshotDir); err == nil {
		return "", fmt.Errorf("snapshot already exists: %s", snapshotDir)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	entries, err := os.ReadDir(latestDir)
	if err != nil {
		return "", fmt.Errorf("cannot read latest artifacts at %s: %w", latestDir, err)
	}

	files := []fs.FileInfo{}
	total := int64(0)
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			return "", err
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, info)
		total += info.Size()
	}

	if err := os.MkdirAll(snapshotDir, 0755); err != nil {
		return "", err
	}

	bar := pb.New64(total)
	bar.Set(pb.Bytes, true)
	bar.SetWriter(o.progressOut)
	if err := bar.Err(); err != nil {
		return "", err
	}

	bar.Start()
	defer bar.Finish()
	for _, info := range files {
		src := filepath.Join(latestDir, info.Name())
		dst := filepath.Join(snapshotDir, info.Name())
		if err := copyFile(src, dst, info, bar); err != nil {
			return "", err
		}
	}

	return snapshotDir, nil
}

func copyFile(src, dst string, info fs.FileInfo, bar *pb.ProgressBar) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	_, err = io.Copy(out, bar.NewProxyReader(in))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	// keep the snapshot's metadata aligned with the original file
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
