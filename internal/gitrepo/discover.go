package gitrepo

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// FindGitDir walks up from start to the repository's git directory. It reads ".git" files
// left by worktrees and submodules and never runs the git binary.
func FindGitDir(start string) (gitDir string, ok bool, err error) {
	if strings.TrimSpace(start) == "" {
		return "", false, errors.New("empty start dir")
	}
	dir, err := filepath.Abs(strings.TrimSpace(start))
	if err != nil {
		return "", false, err
	}
	for {
		candidate := filepath.Join(dir, ".git")
		if st, err := os.Stat(candidate); err == nil {
			if st.IsDir() {
				return candidate, true, nil
			}
			target, err := readGitdirFile(candidate)
			if err != nil {
				return "", false, err
			}
			if target != "" {
				return target, true, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// readGitdirFile parses a "gitdir: <path>" file; relative targets resolve against its dir.
func readGitdirFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		ln := strings.TrimSpace(sc.Text())
		if ln == "" {
			continue
		}
		p, ok := cutPrefixFold(ln, "gitdir:")
		if !ok {
			return "", nil
		}
		p = strings.TrimSpace(p)
		if p == "" {
			return "", nil
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(filepath.Dir(path), p)
		}
		return filepath.Clean(p), nil
	}
	return "", sc.Err()
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

// DetectInProgress reports a merge, rebase, cherry-pick or revert left open in the repository
// containing dir, from the marker files in its git directory.
func DetectInProgress(dir string) (kind string, err error) {
	gitDir, ok, err := FindGitDir(dir)
	if err != nil || !ok {
		return "", err
	}
	markers := []struct {
		kind  string
		paths []string
	}{
		{"merge", []string{"MERGE_HEAD"}},
		{"rebase", []string{"rebase-apply", "rebase-merge"}},
		{"cherry-pick", []string{"CHERRY_PICK_HEAD"}},
		{"revert", []string{"REVERT_HEAD"}},
	}
	for _, m := range markers {
		for _, p := range m.paths {
			if _, err := os.Stat(filepath.Join(gitDir, p)); err == nil {
				return m.kind, nil
			}
		}
	}
	return "", nil
}
