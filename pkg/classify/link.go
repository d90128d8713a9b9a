package classify

// LinkInfo is the result of an lstat on a freshly created path.
type LinkInfo struct {
	IsDir     bool
	IsSymlink bool
	Nlink     uint64
}

// IsLink reports whether the path is a symlink or a hard link to a
// non-directory. Links never produce a close notification of their own.
func (li LinkInfo) IsLink() bool {
	return !li.IsDir && (li.IsSymlink || li.Nlink > 1)
}

// LinkChecker inspects a path without following symlinks.
type LinkChecker interface {
	Lstat(path string) (LinkInfo, error)
}

// LinkCheckerFunc adapts a function to LinkChecker.
type LinkCheckerFunc func(path string) (LinkInfo, error)

func (f LinkCheckerFunc) Lstat(path string) (LinkInfo, error) {
	return f(path)
}
