package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

// isolate keeps the global config and env defaults out of the test.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("KANBAN_CONFIG_DIR", t.TempDir())
	for _, k := range []string{"KANBAN_FILE", "KANBAN_INDEX", "KANBAN_FORMAT", "KANBAN_LOG_LEVEL", "KANBAN_LOG_FORMAT"} {
		t.Setenv(k, "")
	}
	return t.TempDir()
}

func mustRun(t *testing.T, args ...string) []byte {
	t.Helper()
	out, errOut, err := runCLI(t, args)
	if err != nil {
		t.Fatalf("%v: %v\nstderr: %s", args, err, string(errOut))
	}
	return out
}

func decodeEnvelope[T any](t *testing.T, out []byte) (T, map[string]any) {
	t.Helper()
	var env struct {
		Data T              `json:"data"`
		Meta map[string]any `json:"meta"`
	}
	if err := json.Unmarshal(out, &env); err != nil {
		t.Fatalf("decode %q: %v", string(out), err)
	}
	return env.Data, env.Meta
}

type testItem struct {
	Path     []int  `json:"path"`
	Lane     string `json:"lane"`
	ID       string `json:"id"`
	RawText  string `json:"rawText"`
	Metadata struct {
		Date     string `json:"date"`
		Priority string `json:"priority"`
		Checked  bool   `json:"checked"`
		BlockID  string `json:"blockId"`
	} `json:"metadata"`
}

type testBoard struct {
	Title string `json:"title"`
	Lanes []struct {
		Title                   string     `json:"title"`
		ShouldMarkItemsComplete bool       `json:"shouldMarkItemsComplete"`
		Items                   []testItem `json:"items"`
	} `json:"lanes"`
}

func laneItemTexts(b testBoard) [][]string {
	out := make([][]string, len(b.Lanes))
	for i, l := range b.Lanes {
		out[i] = []string{}
		for _, it := range l.Items {
			out[i] = append(out[i], strings.TrimSpace(it.RawText))
		}
	}
	return out
}

func TestInitCreatesBoard(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "sprint.md")

	mustRun(t, "init", "--file", file, "--lanes", "Backlog, Doing ,Done", "--set", "date-trigger=due:")

	raw, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, want := range []string{"## Backlog", "## Doing", "## Done", "date-trigger"} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("expected %q in:\n%s", want, raw)
		}
	}

	b, meta := decodeEnvelope[testBoard](t, mustRun(t, "show", "--file", file))
	if b.Title != "sprint" {
		t.Fatalf("expected title from the file name, got %q", b.Title)
	}
	if len(b.Lanes) != 3 || b.Lanes[1].Title != "Doing" {
		t.Fatalf("unexpected lanes: %+v", b.Lanes)
	}
	if meta["archived"] != float64(0) {
		t.Fatalf("unexpected meta: %+v", meta)
	}

	if _, _, err := runCLI(t, []string{"init", "--file", file}); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already exists, got %v", err)
	}
	mustRun(t, "init", "--file", file, "--force", "--lanes", "One")
	b, _ = decodeEnvelope[testBoard](t, mustRun(t, "show", "--file", file))
	if len(b.Lanes) != 1 {
		t.Fatalf("--force must overwrite, got %d lanes", len(b.Lanes))
	}
}

func TestInitRejectsBadSettings(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "b.md")
	if _, _, err := runCLI(t, []string{"init", "--file", file, "--set", "bogus"}); err == nil {
		t.Fatalf("expected an error for --set without =")
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Fatalf("no file must be written on error")
	}
}

func TestCardLifecycle(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "b.md")
	mustRun(t, "init", "--file", file)

	it, _ := decodeEnvelope[testItem](t, mustRun(t, "items", "add", "todo", "Buy milk @{2024-01-01}", "--file", file))
	if it.Metadata.Date != "2024-01-01" || !cmp.Equal(it.Path, []int{0, 0}) || it.Lane != "Todo" {
		t.Fatalf("unexpected card: %+v", it)
	}
	mustRun(t, "items", "add", "Todo", "Walk", "dog", "--file", file)
	mustRun(t, "items", "add", "Todo", "First", "--top", "--file", file)

	b, _ := decodeEnvelope[testBoard](t, mustRun(t, "show", "--file", file))
	want := [][]string{{"First", "Buy milk @{2024-01-01}", "Walk dog"}, {}, {}}
	if diff := cmp.Diff(want, laneItemTexts(b)); diff != "" {
		t.Fatalf("board mismatch (-want +got):\n%s", diff)
	}

	// Index counted before removal: 0/3 is the end of Todo.
	mustRun(t, "items", "move", "0/0", "0/3", "--file", file)
	mustRun(t, "lanes", "complete", "Done", "--file", file)
	moved, _ := decodeEnvelope[testItem](t, mustRun(t, "items", "move-to-lane", "0/0", "Done", "--file", file))
	if !cmp.Equal(moved.Path, []int{2, 0}) || !moved.Metadata.Checked {
		t.Fatalf("expected a checked card at 2/0, got %+v", moved)
	}

	set, _ := decodeEnvelope[testItem](t, mustRun(t, "items", "set", "0/0", "priority", "high", "--file", file))
	if set.Metadata.Priority != "high" || !strings.Contains(set.RawText, "!{high}") {
		t.Fatalf("unexpected set result: %+v", set)
	}
	cleared, _ := decodeEnvelope[testItem](t, mustRun(t, "items", "set", "0/0", "priority", "--clear", "--file", file))
	if cleared.Metadata.Priority != "" || strings.Contains(cleared.RawText, "!{") {
		t.Fatalf("unexpected clear result: %+v", cleared)
	}

	checked, _ := decodeEnvelope[testItem](t, mustRun(t, "items", "check", "0/0", "--file", file))
	if !checked.Metadata.Checked {
		t.Fatalf("check must toggle on")
	}

	b, _ = decodeEnvelope[testBoard](t, mustRun(t, "show", "--file", file))
	want = [][]string{{"Walk dog", "First"}, {}, {"Buy milk @{2024-01-01}"}}
	if diff := cmp.Diff(want, laneItemTexts(b)); diff != "" {
		t.Fatalf("board mismatch (-want +got):\n%s", diff)
	}

	mustRun(t, "items", "archive", "2/0", "--file", file)
	raw, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), "## Archive") || !strings.Contains(string(raw), "Buy milk") {
		t.Fatalf("expected the archive section:\n%s", raw)
	}
	_, meta := decodeEnvelope[testBoard](t, mustRun(t, "show", "--file", file))
	if meta["archived"] != float64(1) {
		t.Fatalf("expected one archived card, got %+v", meta)
	}
}

func TestSplitDuplicateEditDelete(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "b.md")
	mustRun(t, "init", "--file", file, "--lanes", "Todo")
	mustRun(t, "items", "add", "Todo", "one\ntwo", "--file", file)

	mustRun(t, "items", "split", "0/0", "--file", file)
	dup, _ := decodeEnvelope[testItem](t, mustRun(t, "items", "duplicate", "0/1", "--file", file))
	if !cmp.Equal(dup.Path, []int{0, 2}) || dup.RawText != "two" {
		t.Fatalf("unexpected duplicate: %+v", dup)
	}
	mustRun(t, "items", "edit", "0/2", "three", "--file", file)
	mustRun(t, "items", "delete", "0/0", "--file", file)

	b, _ := decodeEnvelope[testBoard](t, mustRun(t, "show", "--file", file))
	if diff := cmp.Diff([][]string{{"two", "three"}}, laneItemTexts(b)); diff != "" {
		t.Fatalf("board mismatch (-want +got):\n%s", diff)
	}
}

func TestClearRemovesUndecodableTags(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "b.md")
	mustRun(t, "init", "--file", file, "--lanes", "Todo")
	mustRun(t, "items", "add", "Todo", "Task !{urgent}", "--file", file)
	mustRun(t, "items", "add", "Todo", "Other @{garbage}", "--file", file)

	for _, tc := range []struct {
		path, field, want string
	}{
		{"0/0", "priority", "Task"},
		{"0/1", "date", "Other"},
	} {
		it, _ := decodeEnvelope[testItem](t, mustRun(t, "items", "set", tc.path, tc.field, "--clear", "--file", file))
		if it.RawText != tc.want {
			t.Fatalf("clear %s on %s: rawText = %q, want %q", tc.field, tc.path, it.RawText, tc.want)
		}
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(raw), "urgent") || strings.Contains(string(raw), "garbage") {
		t.Fatalf("tags left in file:\n%s", raw)
	}
}

func TestDuplicateDropsBlockID(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "b.md")
	mustRun(t, "init", "--file", file, "--lanes", "Todo")
	mustRun(t, "items", "add", "Todo", "Call", "--file", file)
	mustRun(t, "items", "link", "0/0", "--file", file)

	dup, _ := decodeEnvelope[testItem](t, mustRun(t, "items", "duplicate", "0/0", "--file", file))
	if dup.RawText != "Call" || dup.Metadata.BlockID != "" {
		t.Fatalf("unexpected duplicate: %+v", dup)
	}
}

func TestLinkAddsBlockIDOnce(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "notes.md")
	mustRun(t, "init", "--file", file, "--lanes", "Todo")
	mustRun(t, "items", "add", "Todo", "Call", "--file", file)

	type link struct {
		Link    string `json:"link"`
		BlockID string `json:"blockId"`
	}
	first, _ := decodeEnvelope[link](t, mustRun(t, "items", "link", "0/0", "--file", file))
	if first.BlockID == "" || first.Link != "[[notes#^"+first.BlockID+"]]" {
		t.Fatalf("unexpected link: %+v", first)
	}
	second, _ := decodeEnvelope[link](t, mustRun(t, "items", "link", "^"+first.BlockID, "--file", file))
	if second != first {
		t.Fatalf("expected the same link, got %+v vs %+v", second, first)
	}
}

func TestLaneCommands(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "b.md")
	mustRun(t, "init", "--file", file, "--lanes", "A,B")
	mustRun(t, "items", "add", "A", "x", "--file", file)

	mustRun(t, "lanes", "add", "C", "--at", "0", "--file", file)
	mustRun(t, "lanes", "rename", "B", "Bee", "--file", file)
	mustRun(t, "lanes", "move", "0", "3", "--file", file)
	mustRun(t, "lanes", "duplicate", "A", "--file", file)

	type lane struct {
		Title string `json:"title"`
		Items int    `json:"items"`
	}
	lanes, _ := decodeEnvelope[[]lane](t, mustRun(t, "lanes", "list", "--file", file))
	want := []lane{{"A", 1}, {"A", 1}, {"Bee", 0}, {"C", 0}}
	if diff := cmp.Diff(want, lanes); diff != "" {
		t.Fatalf("lanes mismatch (-want +got):\n%s", diff)
	}

	mustRun(t, "lanes", "archive-items", "1", "--file", file)
	mustRun(t, "lanes", "delete", "C", "--file", file)
	lanes, _ = decodeEnvelope[[]lane](t, mustRun(t, "lanes", "list", "--file", file))
	want = []lane{{"A", 1}, {"A", 0}, {"Bee", 0}}
	if diff := cmp.Diff(want, lanes); diff != "" {
		t.Fatalf("lanes mismatch (-want +got):\n%s", diff)
	}
}

func TestIndexQueryAndEvents(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "b.md")
	index := filepath.Join(dir, "index")
	mustRun(t, "init", "--file", file)
	mustRun(t, "items", "add", "Todo", "Pay rent !{high} ~{home}", "--file", file, "--index", index)
	mustRun(t, "items", "add", "Doing", "Read", "book", "--file", file, "--index", index)
	mustRun(t, "items", "archive", "1/0", "--file", file, "--index", index)

	type row struct {
		Lane     string `json:"lane"`
		Title    string `json:"title"`
		Priority string `json:"priority"`
	}
	rows, meta := decodeEnvelope[[]row](t, mustRun(t, "query", "--priority", "high", "--file", file, "--index", index))
	if diff := cmp.Diff([]row{{"Todo", "Pay rent !{high} ~{home}", "high"}}, rows); diff != "" {
		t.Fatalf("query mismatch (-want +got):\n%s", diff)
	}
	if meta["count"] != float64(1) {
		t.Fatalf("unexpected meta %+v", meta)
	}
	rows, _ = decodeEnvelope[[]row](t, mustRun(t, "query", "--all", "--text", "book", "--index", index))
	if len(rows) != 0 {
		t.Fatalf("archived cards must leave the item index, got %+v", rows)
	}

	type event struct {
		Seq  int64  `json:"seq"`
		Type string `json:"type"`
	}
	evs, _ := decodeEnvelope[[]event](t, mustRun(t, "events", "--file", file, "--index", index))
	wantEvs := []event{{1, "item.add"}, {2, "item.add"}, {3, "item.archive"}}
	if diff := cmp.Diff(wantEvs, evs); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	evs, _ = decodeEnvelope[[]event](t, mustRun(t, "events", "--limit", "1", "--file", file, "--index", index))
	if len(evs) != 1 || evs[0].Seq != 3 {
		t.Fatalf("expected only the newest event, got %+v", evs)
	}

	type archived struct {
		Lane    string `json:"lane"`
		RawText string `json:"rawText"`
	}
	arch, _ := decodeEnvelope[[]archived](t, mustRun(t, "index", "archived", "--file", file, "--index", index))
	if diff := cmp.Diff([]archived{{"Doing", "Read book"}}, arch); diff != "" {
		t.Fatalf("archived mismatch (-want +got):\n%s", diff)
	}

	type board struct {
		Title string `json:"title"`
		Items int    `json:"items"`
	}
	boards, _ := decodeEnvelope[[]board](t, mustRun(t, "index", "--file", file, "--index", index))
	if diff := cmp.Diff([]board{{"b", 1}}, boards); diff != "" {
		t.Fatalf("boards mismatch (-want +got):\n%s", diff)
	}
	mustRun(t, "index", "forget", "--file", file, "--index", index)
	boards, _ = decodeEnvelope[[]board](t, mustRun(t, "index", "boards", "--index", index))
	if len(boards) != 0 {
		t.Fatalf("expected no boards after forget, got %+v", boards)
	}
}

func TestErrors(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "b.md")
	mustRun(t, "init", "--file", file)

	cases := []struct {
		name string
		args []string
		want string
	}{
		{"no file", []string{"show"}, "no board file"},
		{"missing file", []string{"show", "--file", filepath.Join(dir, "nope.md")}, "nope.md"},
		{"path out of range", []string{"items", "show", "0/5", "--file", file}, "out of range"},
		{"lane path for item", []string{"items", "show", "0", "--file", file}, "want lane/index"},
		{"unknown lane", []string{"items", "add", "Nope", "x", "--file", file}, "lane not found"},
		{"unknown block", []string{"items", "show", "^zzz", "--file", file}, "item not found"},
		{"query needs index", []string{"query", "--file", file}, "needs the SQLite index"},
		{"bad due date", []string{"query", "--file", file, "--index", filepath.Join(dir, "i"), "--due-before", "tomorrow"}, "YYYY-MM-DD"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, stderr, err := runCLI(t, tc.args)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !strings.Contains(err.Error(), tc.want) || !strings.Contains(string(stderr), tc.want) {
				t.Fatalf("expected %q in error and stderr, got %v / %s", tc.want, err, string(stderr))
			}
		})
	}
}

func TestTextAndYAMLFormats(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "b.md")
	mustRun(t, "init", "--file", file)
	mustRun(t, "items", "add", "Todo", "Buy milk", "--file", file)

	out := string(mustRun(t, "show", "--file", file, "--format", "text", "--no-color"))
	for _, want := range []string{"Todo (1)", "Buy milk", "Done (0)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}

	out = string(mustRun(t, "items", "list", "--file", file, "--format", "yaml"))
	if !strings.Contains(out, "data:") || !strings.Contains(out, "rawText: Buy milk") {
		t.Fatalf("unexpected yaml:\n%s", out)
	}
}

func TestExportMatchesFile(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "b.md")
	mustRun(t, "init", "--file", file)
	mustRun(t, "items", "add", "Todo", "Buy milk", "--file", file)

	raw, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := string(mustRun(t, "export", "--file", file)); got != string(raw) {
		t.Fatalf("export differs from the file:\n%s\n---\n%s", got, raw)
	}
	rendered := string(mustRun(t, "export", "--render", "--width", "60", "--no-color", "--file", file))
	if !strings.Contains(rendered, "Buy milk") || strings.Contains(rendered, "kanban-plugin") {
		t.Fatalf("unexpected rendering:\n%s", rendered)
	}
}

func TestConfigDefaultsApply(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "b.md")
	cfgDir := os.Getenv("KANBAN_CONFIG_DIR")
	cfg := `{
  // JSONC is fine here
  "defaultFile": ` + jsonString(file) + `,
  "format": "text",
}`
	if err := os.WriteFile(filepath.Join(cfgDir, "config.json"), []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	mustRun(t, "init")
	out := string(mustRun(t, "lanes", "list"))
	if !strings.Contains(out, "LANE") || !strings.Contains(out, "Doing") {
		t.Fatalf("expected a text table from the config format, got:\n%s", out)
	}
	// Flags beat the config.
	if _, meta := decodeEnvelope[[]any](t, mustRun(t, "lanes", "list", "--format", "json")); meta != nil {
		t.Fatalf("unexpected meta %+v", meta)
	}
}

func TestInitDefaultRecordsBoard(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "main.md")
	mustRun(t, "init", "--file", file, "--lanes", "Inbox", "--default")

	raw, err := os.ReadFile(filepath.Join(os.Getenv("KANBAN_CONFIG_DIR"), "config.json"))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	var cfg struct {
		DefaultFile string `json:"defaultFile"`
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.DefaultFile != file {
		t.Fatalf("defaultFile = %q, want %q", cfg.DefaultFile, file)
	}
	// Later commands find the board without --file.
	b, _ := decodeEnvelope[testBoard](t, mustRun(t, "show"))
	if len(b.Lanes) != 1 || b.Lanes[0].Title != "Inbox" {
		t.Fatalf("unexpected board: %+v", b)
	}
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestAutoCommitInGitRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := isolate(t)
	for _, args := range [][]string{
		{"init"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "Test"},
		{"config", "commit.gpgsign", "false"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	cfg := `{"git": {"autoCommit": true}}`
	if err := os.WriteFile(filepath.Join(os.Getenv("KANBAN_CONFIG_DIR"), "config.json"), []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	file := filepath.Join(dir, "sprint.md")
	mustRun(t, "init", "--file", file)
	mustRun(t, "items", "add", "Todo", "Buy milk", "--file", file)
	mustRun(t, "items", "check", "0/0", "--file", file)

	cmd := exec.Command("git", "log", "--format=%s")
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git log: %v\n%s", err, out)
	}
	want := "kanban(sprint): item.check\nkanban(sprint): item.add"
	if got := strings.TrimSpace(string(out)); got != want {
		t.Fatalf("unexpected history:\n%s", got)
	}
}

func TestDocs(t *testing.T) {
	isolate(t)
	type topics struct {
		Topics []string `json:"topics"`
	}
	got, _ := decodeEnvelope[topics](t, mustRun(t, "docs"))
	if diff := cmp.Diff([]string{"format", "settings", "tags", "tui"}, got.Topics); diff != "" {
		t.Fatalf("topics mismatch (-want +got):\n%s", diff)
	}
	raw := string(mustRun(t, "docs", "tags", "--raw"))
	if !strings.HasPrefix(raw, "# Inline tags") {
		t.Fatalf("unexpected raw doc:\n%s", raw)
	}
	if _, _, err := runCLI(t, []string{"docs", "nope"}); err == nil || !strings.Contains(err.Error(), "unknown docs topic") {
		t.Fatalf("expected unknown topic, got %v", err)
	}
}
