package help

import (
	"strings"
	"testing"

	"github.com/thomasrohde/mashd/pkg/ast"
	"github.com/thomasrohde/mashd/pkg/stdlib"
	"github.com/thomasrohde/mashd/pkg/value"
)

func TestQUICKREFListsTopics(t *testing.T) {
	for _, topic := range TopicList {
		if !strings.Contains(QUICKREF, topic) {
			t.Errorf("QUICKREF does not mention topic %q", topic)
		}
	}
}

func TestTopicListMatchesTopics(t *testing.T) {
	if len(TopicList) != len(Topics) {
		t.Errorf("TopicList has %d entries, Topics %d", len(TopicList), len(Topics))
	}
	for _, name := range TopicList {
		if content := Topics[name]; content == "" {
			t.Errorf("topic %q missing or empty", name)
		}
	}
}

func TestMatchTopic(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"pipeline", "pipeline"},
		{"diag", "diagnostics"},
		{"Match", "matching"},
		{" tr ", "transform"},
	}
	for _, tt := range tests {
		name, content, err := MatchTopic(tt.query)
		if err != nil {
			t.Errorf("MatchTopic(%q) error: %v", tt.query, err)
			continue
		}
		if name != tt.want || content == "" {
			t.Errorf("MatchTopic(%q) = %q, want %q", tt.query, name, tt.want)
		}
	}
}

func TestMatchTopicErrors(t *testing.T) {
	for _, q := range []string{"nonexistent", "", "__proto__"} {
		if _, _, err := MatchTopic(q); err == nil {
			t.Errorf("MatchTopic(%q): expected error", q)
		}
	}
	// "c" is a unique prefix of config.
	if _, _, err := MatchTopic("c"); err != nil {
		t.Errorf("MatchTopic(c): %v", err)
	}
}

func TestMethodIndex(t *testing.T) {
	idx := MethodIndex(stdlib.Defaults())
	if !strings.Contains(idx, "Total: 18 methods") {
		t.Errorf("MethodIndex should report 18 methods, got:\n%s", idx)
	}
	for _, want := range []string{"Text:", "toUpper", "Date:", "format", "Decimal:", "round"} {
		if !strings.Contains(idx, want) {
			t.Errorf("MethodIndex missing %q", want)
		}
	}
}

func TestMethodIndexCustomRegistry(t *testing.T) {
	r := stdlib.NewRegistry()
	r.Register(stdlib.Fn{Name: "shout", Receiver: ast.TypeText, Result: ast.TypeText,
		Execute: func(recv value.Value, args []value.Value) (value.Value, error) { return recv, nil }})
	idx := MethodIndex(r)
	if !strings.Contains(idx, "shout") || !strings.Contains(idx, "Total: 1 methods") {
		t.Errorf("unexpected index:\n%s", idx)
	}
	if strings.Contains(idx, "Date:") {
		t.Errorf("empty receiver types should be omitted:\n%s", idx)
	}
}
