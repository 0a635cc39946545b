package shell

import (
	"iter"
	"os"
	"path/filepath"
)

// Which yields the absolute path of every existing file called name found in
// the PATH directories followed by extra. When extra is empty the current
// working directory is searched last. The sequence is lazy; stop ranging once
// a match is good enough.
func Which(name string, extra ...string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if name == "" {
			return
		}
		if len(extra) == 0 {
			if wd, err := os.Getwd(); err == nil {
				extra = []string{wd}
			}
		}
		dirs := append(filepath.SplitList(os.Getenv("PATH")), extra...)
		for _, dir := range dirs {
			if dir == "" {
				continue
			}
			candidate, err := filepath.Abs(filepath.Join(dir, name))
			if err != nil {
				continue
			}
			info, err := os.Stat(candidate)
			if err != nil || info.IsDir() {
				continue
			}
			if !yield(candidate) {
				return
			}
		}
	}
}

// First returns the first match of Which(name).
func First(name string) (string, bool) {
	for path := range Which(name) {
		return path, true
	}
	return "", false
}
