//go:build !unix

package classify

import (
	"os"
)

// FSLinkChecker is the filesystem backed LinkChecker. Hard link counts are not
// available here, so only symlinks are detected.
type FSLinkChecker struct{}

func (FSLinkChecker) Lstat(path string) (LinkInfo, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return LinkInfo{}, err
	}
	return LinkInfo{
		IsDir:     fi.IsDir(),
		IsSymlink: fi.Mode()&os.ModeSymlink != 0,
		Nlink:     1,
	}, nil
}
