package main

import (
	"os"
	"strings"

	"kanban-cli/internal/cli"
)

func isBoardFile(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) > len(".md") && strings.EqualFold(s[len(s)-len(".md"):], ".md")
}

func rewriteBoardFileArgs(argv []string) []string {
	// Convenience: `kanban <file.md>` works like `kanban show --file <file.md>`.
	//
	// Cobra treats the first non-flag token as a subcommand, so argv is rewritten before
	// parsing. Persistent flags may come first (`kanban --format text board.md`), so look for
	// the first positional token, not just argv[1].
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--file":      true,
		"--index":     true,
		"--format":    true,
		"--log-level": true,
	}
	boolFlags := map[string]bool{
		"--pretty":   true,
		"--no-color": true,
	}

	rewrite := func(before []string, file string, after []string) []string {
		out := make([]string, 0, len(before)+len(after)+3)
		out = append(out, before...)
		out = append(out, "show", "--file", file)
		return append(out, after...)
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			// The show flags must stay ahead of "--", so it is dropped.
			if i+1 < len(argv) && isBoardFile(argv[i+1]) {
				return rewrite(argv[:i], argv[i+1], argv[i+2:])
			}
			return argv
		}

		if strings.HasPrefix(a, "-") {
			if strings.Contains(a, "=") {
				continue
			}
			if boolFlags[a] {
				continue
			}
			if valueFlags[a] {
				i++
				continue
			}
			continue
		}

		if isBoardFile(a) {
			return rewrite(argv[:i], argv[i], argv[i+1:])
		}
		return argv
	}

	return argv
}

func main() {
	os.Args = rewriteBoardFileArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
