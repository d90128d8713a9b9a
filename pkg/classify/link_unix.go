//go:build unix

package classify

import (
	"golang.org/x/sys/unix"
)

// FSLinkChecker is the filesystem backed LinkChecker.
type FSLinkChecker struct{}

func (FSLinkChecker) Lstat(path string) (LinkInfo, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return LinkInfo{}, err
	}
	format := uint32(st.Mode) & unix.S_IFMT
	return LinkInfo{
		IsDir:     format == unix.S_IFDIR,
		IsSymlink: format == unix.S_IFLNK,
		Nlink:     uint64(st.Nlink),
	}, nil
}
