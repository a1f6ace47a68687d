package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var ErrInProgress = errors.New("git repo has an in-progress merge/rebase; resolve first")

// CommitFile stages file and commits it alone; other staged changes are left staged.
// It returns committed=false outside a repository or when file has no changes.
func CommitFile(ctx context.Context, file, message string) (committed bool, err error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return false, err
	}
	dir := filepath.Dir(abs)

	st, err := GetStatus(ctx, dir)
	if err != nil {
		return false, err
	}
	if !st.IsRepo {
		return false, nil
	}
	if st.Unmerged || st.InProgress != "" {
		return false, ErrInProgress
	}

	rel, err := relToRoot(st.Root, abs)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(abs); err != nil {
		return false, err
	}
	if _, err := git(ctx, st.Root, "add", "--", rel); err != nil {
		return false, err
	}
	out, err := git(ctx, st.Root, "diff", "--cached", "--name-only", "--", rel)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(out) == "" {
		return false, nil
	}

	msg := strings.TrimSpace(message)
	if msg == "" {
		msg = fmt.Sprintf("kanban: update %s (%s)", filepath.Base(abs), time.Now().UTC().Format(time.RFC3339))
	}
	if _, err := git(ctx, st.Root, "commit", "-m", msg, "--", rel); err != nil {
		return false, err
	}
	return true, nil
}

// relToRoot makes file relative to the repository root. Temp dirs on macOS sit behind
// symlinks (/var -> /private/var) while git reports the resolved root, so both sides are
// resolved first.
func relToRoot(root, file string) (string, error) {
	if v, err := filepath.EvalSymlinks(root); err == nil {
		root = v
	}
	dir, base := filepath.Split(file)
	if v, err := filepath.EvalSymlinks(dir); err == nil {
		file = filepath.Join(v, base)
	}
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return "", fmt.Errorf("%s is outside repository %s", file, root)
	}
	return filepath.ToSlash(rel), nil
}
