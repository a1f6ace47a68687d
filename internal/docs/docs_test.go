package docs

import (
	"strings"
	"testing"
)

func TestTopics(t *testing.T) {
	got := strings.Join(Topics(), ",")
	if got != "format,settings,tags,tui" {
		t.Fatalf("unexpected topics %q", got)
	}
	for _, topic := range Topics() {
		body, ok := Get(topic)
		if !ok || !strings.HasPrefix(body, "# ") {
			t.Fatalf("topic %q: ok=%v body=%q", topic, ok, body)
		}
	}
}

func TestGet(t *testing.T) {
	if _, ok := Get(" TAGS "); !ok {
		t.Fatalf("topic names must be case-insensitive")
	}
	for _, bad := range []string{"", "nope", "../docs", "content/tags"} {
		if _, ok := Get(bad); ok {
			t.Fatalf("Get(%q) should fail", bad)
		}
	}
}
