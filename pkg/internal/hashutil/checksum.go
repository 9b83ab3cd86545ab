package hashutil

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/gapurov/simple-dotfiles/pkg/types"
)

// CalculateFileChecksum calculates the SHA256 checksum of a file
func CalculateFileChecksum(fs types.FS, path string) (string, error) {
	file, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = file.Close()
	}()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

// FilesEqual reports whether two regular files have identical contents.
// Sizes are compared first so differing files are usually not read at all.
func FilesEqual(fs types.FS, a, b string) (bool, error) {
	infoA, err := fs.Stat(a)
	if err != nil {
		return false, err
	}
	infoB, err := fs.Stat(b)
	if err != nil {
		return false, err
	}
	if !infoA.Mode().IsRegular() || !infoB.Mode().IsRegular() {
		return false, nil
	}
	if infoA.Size() != infoB.Size() {
		return false, nil
	}

	sumA, err := CalculateFileChecksum(fs, a)
	if err != nil {
		return false, err
	}
	sumB, err := CalculateFileChecksum(fs, b)
	if err != nil {
		return false, err
	}
	return sumA == sumB, nil
}
