package atomicfile

import (
	"errors"
	"os"
	"path/filepath"
)

// Some references:
// - https://www.slideshare.net/nan1nan1/eat-my-data
// - https://lwn.net/Articles/457667/

var errNoName = errors.New("path has no file name")

func getErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteFile writes d to path so that path either has the old content
// or all of d, never a partial write.
// Data goes to a temp file in the same directory which is renamed
// over path after fsync.
func WriteFile(path string, d []byte) error {
	dir, fName := filepath.Split(path)
	if fName == "" {
		return &os.PathError{Op: "open", Path: path, Err: errNoName}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	tmpFile, err := os.CreateTemp(dir, fName)
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	_, errWrite := tmpFile.Write(d)
	// https://www.joeshaw.org/dont-defer-close-on-writable-files/
	errSync := tmpFile.Sync()
	errClose := tmpFile.Close()
	if err = getErr(errWrite, errSync, errClose); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	// CreateTemp uses 0600
	_ = os.Chmod(tmpPath, 0644)

	// this will over-write path (if it exists)
	if err = os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	// for extra protection against crashes elsewhere,
	// sync directory after rename
	fdir, _ := os.Open(dir)
	if fdir != nil {
		// ignore errors as those are a nice have, not must have
		_ = fdir.Sync()
		_ = fdir.Close()
	}
	return nil
}
