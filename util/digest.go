package util

import (
	"fmt"
	"io"
	"os"

	"github.com/zeebo/xxh3"
)

// Digest returns the hex encoded xxh3-128 digest of data.
func Digest(data []byte) string {
	return fmt.Sprintf("%x", xxh3.Hash128(data).Bytes())
}

// GetFileDigest streams the file at path through xxh3-128.
func GetFileDigest(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", ErrExpectedFile
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return GetDigest(f)
}

// GetDigest digests everything read from r.
func GetDigest(r io.Reader) (string, error) {
	h := xxh3.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum128().Bytes()), nil
}
