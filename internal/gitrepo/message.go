package gitrepo

import (
	"fmt"
	"sort"
	"strings"
)

// CommitMessage summarises the change types of one commit, most frequent first, e.g.
// "kanban(sprint): item.add x2, lane.rename".
func CommitMessage(board string, changes []string) string {
	subject := "kanban"
	if b := strings.TrimSpace(board); b != "" {
		subject += "(" + b + ")"
	}
	counts := map[string]int{}
	var order []string
	for _, c := range changes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if counts[c] == 0 {
			order = append(order, c)
		}
		counts[c]++
	}
	if len(order) == 0 {
		return subject + ": update"
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })

	parts := make([]string, 0, len(order))
	for _, c := range order {
		if n := counts[c]; n > 1 {
			parts = append(parts, fmt.Sprintf("%s x%d", c, n))
		} else {
			parts = append(parts, c)
		}
	}
	return subject + ": " + strings.Join(parts, ", ")
}
