// Package fileutil copies produced media and data files between a job's
// working directories.
package fileutil

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// CopyFile copies src to dst, truncating any existing file at dst.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// CopyFileVerified copies src to dst and confirms the copy landed intact by
// re-reading dst and comparing size and SHA256 digest against the source.
// A short or corrupt copy is removed so a broken reel never reaches a
// delivery archive.
func CopyFileVerified(src, dst string) error {
	srcSum, srcSize, err := digest(src)
	if err != nil {
		return fmt.Errorf("hash source: %w", err)
	}
	if err := CopyFile(src, dst); err != nil {
		return err
	}
	dstSum, dstSize, err := digest(dst)
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("hash copy: %w", err)
	}
	if dstSize != srcSize {
		_ = os.Remove(dst)
		return fmt.Errorf("verified copy of %s: wrote %d of %d bytes", src, dstSize, srcSize)
	}
	if dstSum != srcSum {
		_ = os.Remove(dst)
		return fmt.Errorf("verified copy of %s: digest mismatch", src)
	}
	return nil
}

func digest(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), n, nil
}
