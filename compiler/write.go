package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
)

type artifact struct {
	path string
	data []byte
	temp string
}

// writeArtifacts stages every artifact in a temporary file next to its
// destination and renames them in place only when all were written.
// On failure staged files and already renamed artifacts are removed.
func writeArtifacts(arts []artifact) (err error) {
	defer func() {
		if err == nil {
			return
		}
		for _, a := range arts {
			if len(a.temp) > 0 {
				if er := os.Remove(a.temp); er != nil && !os.IsNotExist(er) {
					err = multierr.Append(err, fmt.Errorf("unable to remove temporary file '%s': %w", a.temp, er))
				}
			}
		}
	}()

	for i := range arts {
		if arts[i].temp, err = stage(arts[i].path, arts[i].data); err != nil {
			return err
		}
	}

	for i := range arts {
		if err = os.Rename(arts[i].temp, arts[i].path); err != nil {
			err = fmt.Errorf("unable to write '%s': %w", arts[i].path, err)
			for _, done := range arts[:i] {
				if er := os.Remove(done.path); er != nil {
					err = multierr.Append(err, fmt.Errorf("unable to remove partial output '%s': %w", done.path, er))
				}
			}
			return err
		}
	}
	return nil
}

func stage(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("unable to create output directory '%s': %w", dir, err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return "", fmt.Errorf("unable to create temporary file for '%s': %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		return f.Name(), multierr.Append(fmt.Errorf("unable to write '%s': %w", f.Name(), err), f.Close())
	}
	if err := f.Close(); err != nil {
		return f.Name(), fmt.Errorf("unable to close '%s': %w", f.Name(), err)
	}
	if err := os.Chmod(f.Name(), 0644); err != nil {
		return f.Name(), fmt.Errorf("unable to set permissions of '%s': %w", f.Name(), err)
	}
	return f.Name(), nil
}
