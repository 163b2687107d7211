package utils

import (
	"io"
	"os"
)

// CopyFile copies src to dst, creating parent directories as needed and
// carrying over the source's modification time so a subsequent tree
// comparison sees the copy as in sync. Returns the number of bytes
// copied.
func CopyFile(src, dst string) (int64, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return 0, err
	}

	if err := EnsureParent(dst); err != nil {
		return 0, err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return 0, err
	}

	written, err := io.Copy(dstFile, srcFile)
	if cerr := dstFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return written, err
	}

	if err := os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime()); err != nil {
		return written, err
	}
	return written, nil
}
