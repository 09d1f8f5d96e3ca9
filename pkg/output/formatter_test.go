package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/sonemaro/sortitor/pkg/job"
	"github.com/sonemaro/sortitor/pkg/logger"
	"github.com/sonemaro/sortitor/pkg/rules"
	"github.com/sonemaro/sortitor/pkg/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// mockLogger implements logger.Logger interface for testing
type mockLogger struct {
	logs []string
}

func (m *mockLogger) Info(msg string)                               { m.logs = append(m.logs, "INFO: "+msg) }
func (m *mockLogger) Debug(msg string)                              { m.logs = append(m.logs, "DEBUG: "+msg) }
func (m *mockLogger) Error(msg string)                              { m.logs = append(m.logs, "ERROR: "+msg) }
func (m *mockLogger) Warn(msg string)                               { m.logs = append(m.logs, "WARN: "+msg) }
func (m *mockLogger) Trace(msg string)                              { m.logs = append(m.logs, "TRACE: "+msg) }
func (m *mockLogger) WithFields(fields logger.Fields) logger.Logger { return m }

func createTestStore(t *testing.T) *rules.Store {
	t.Helper()
	s := rules.NewStore()
	require.NoError(t, s.AddRule("pdf", "Documents", ""))
	require.NoError(t, s.AddRule("invoice", "Finance", ""))
	require.NoError(t, s.AddGroup("photos"))
	require.NoError(t, s.AddRule("jpg", "Pictures", "work"))
	require.NoError(t, s.SetCurrentGroup("work"))
	return s
}

func newFormatter(t *testing.T, config Config) (Formatter, *mockLogger) {
	t.Helper()
	log := &mockLogger{}
	f, err := NewFormatter(config, log)
	require.NoError(t, err)
	return f, log
}

func TestGroupsFormatter(t *testing.T) {
	tests := []struct {
		name       string
		format     Format
		withStats  bool
		withColors bool
		verify     func(*testing.T, string, *mockLogger)
	}{
		{
			name:   "tree format basic",
			format: FormatTree,
			verify: func(t *testing.T, output string, log *mockLogger) {
				assert.Equal(t, strings.Join([]string{
					"rule groups",
					"├── default",
					"│   ├── pdf -> Documents/",
					"│   └── invoice -> Finance/",
					"├── photos",
					"│   └── (no rules)",
					"└── work (current)",
					"    └── jpg -> Pictures/",
					"",
				}, "\n"), output)
			},
		},
		{
			name:       "tree format with colors",
			format:     FormatTree,
			withColors: true,
			verify: func(t *testing.T, output string, log *mockLogger) {
				assert.Contains(t, output, "\x1b[34;1m") // Bold blue for groups
				assert.Contains(t, output, "\x1b[36m")   // Cyan for folders
				assert.Contains(t, output, "\x1b[0m")    // Reset
			},
		},
		{
			name:      "tree format with stats",
			format:    FormatTree,
			withStats: true,
			verify: func(t *testing.T, output string, log *mockLogger) {
				assert.Contains(t, output, "Statistics:")
				assert.Contains(t, output, "Total Groups: 3")
				assert.Contains(t, output, "Total Rules: 3")
				assert.Contains(t, output, "Empty Groups: 1")
				assert.Contains(t, log.logs, "DEBUG: Statistics calculated")
			},
		},
		{
			name:      "json format",
			format:    FormatJSON,
			withStats: true,
			verify: func(t *testing.T, output string, log *mockLogger) {
				var doc struct {
					Groups []struct {
						Group   string       `json:"group"`
						Current bool         `json:"current"`
						Rules   []rules.Rule `json:"rules"`
					} `json:"groups"`
					Statistics struct {
						Groups int `json:"totalGroups"`
						Rules  int `json:"totalRules"`
					} `json:"statistics"`
				}
				require.NoError(t, json.Unmarshal([]byte(output), &doc))
				require.Len(t, doc.Groups, 3)
				assert.Equal(t, "default", doc.Groups[0].Group)
				assert.Equal(t, []rules.Rule{{Keyword: "pdf", Folder: "Documents"}, {Keyword: "invoice", Folder: "Finance"}}, doc.Groups[0].Rules)
				assert.True(t, doc.Groups[2].Current)
				assert.Equal(t, 3, doc.Statistics.Rules)
				assert.Contains(t, output, `"rules": []`, "empty groups list an empty array")
			},
		},
		{
			name:   "yaml format",
			format: FormatYAML,
			verify: func(t *testing.T, output string, log *mockLogger) {
				var doc map[string]interface{}
				require.NoError(t, yaml.Unmarshal([]byte(output), &doc))
				assert.Contains(t, doc, "groups")
				assert.NotContains(t, doc, "statistics")
				assert.Contains(t, output, "keyword: pdf")
			},
		},
		{
			name:      "table format",
			format:    FormatTable,
			withStats: true,
			verify: func(t *testing.T, output string, log *mockLogger) {
				assert.Contains(t, output, "Group")
				assert.Contains(t, output, "photos")
				assert.Contains(t, output, "*")
				assert.Contains(t, output, "3 groups, 3 rules")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, log := newFormatter(t, Config{
				Format:     tt.format,
				WithStats:  tt.withStats,
				WithColors: tt.withColors,
			})

			output, err := f.Groups(RuleSets(createTestStore(t)))
			require.NoError(t, err)
			tt.verify(t, output, log)
		})
	}
}

func TestRulesFormatter(t *testing.T) {
	set := RuleSet{Group: "default", Current: true, Rules: []rules.Rule{
		{Keyword: "pdf", Folder: "Documents"},
		{Keyword: "发票", Folder: "财务"},
	}}

	t.Run("tree", func(t *testing.T) {
		f, _ := newFormatter(t, Config{Format: FormatTree})
		out, err := f.Rules(set)
		require.NoError(t, err)
		assert.Equal(t, "default (current)\n├── pdf -> Documents/\n└── 发票 -> 财务/\n", out)
	})

	t.Run("empty group", func(t *testing.T) {
		f, _ := newFormatter(t, Config{Format: FormatTree})
		out, err := f.Rules(RuleSet{Group: "work"})
		require.NoError(t, err)
		assert.Equal(t, "work\n└── (no rules)\n", out)
	})

	t.Run("json keeps order", func(t *testing.T) {
		f, _ := newFormatter(t, Config{Format: FormatJSON})
		out, err := f.Rules(set)
		require.NoError(t, err)
		assert.Less(t, strings.Index(out, `"pdf"`), strings.Index(out, `"发票"`))
		assert.Contains(t, out, `"group": "default"`)
		assert.Contains(t, out, `"current": true`)
	})

	t.Run("table", func(t *testing.T) {
		f, _ := newFormatter(t, Config{Format: FormatTable})
		out, err := f.Rules(set)
		require.NoError(t, err)
		assert.Contains(t, out, "Keyword")
		assert.Contains(t, out, "Documents/")
		assert.Contains(t, out, "发票")
	})
}

func TestSummaryFormatter(t *testing.T) {
	g := rules.NewGroup("default")
	require.NoError(t, g.Set("pdf", "Documents"))
	j, err := job.New("/src", "/dst", transfer.Copy, g)
	require.NoError(t, err)

	tests := []struct {
		name   string
		result job.Result
		format Format
		want   []string
	}{
		{
			name:   "completed",
			result: job.Result{State: job.Completed, Total: 4, Counts: job.Counts{Processed: 2, Skipped: 1, Errored: 1}},
			format: FormatTree,
			want:   []string{"Organize completed. Statistics:\nProcessed: 2 files\nSkipped: 1 files\nFailed: 1 files\n"},
		},
		{
			name:   "cancelled",
			result: job.Result{State: job.Cancelled, Total: 4, Counts: job.Counts{Processed: 1}},
			format: FormatTree,
			want:   []string{"Organize cancelled. Statistics:", "Processed: 1 files"},
		},
		{
			name:   "failed",
			result: job.Result{State: job.Failed, Reason: "cannot create target directory /dst"},
			format: FormatTree,
			want:   []string{"Organize failed: cannot create target directory /dst. Statistics:"},
		},
		{
			name:   "json",
			result: job.Result{State: job.Completed, Total: 1, Counts: job.Counts{Processed: 1}},
			format: FormatJSON,
			want:   []string{`"state": "completed"`, `"processed": 1`, `"mode": "copy"`, `"group": "default"`, `"elapsed": "1.5s"`},
		},
		{
			name:   "table",
			result: job.Result{State: job.Failed, Reason: "boom"},
			format: FormatTable,
			want:   []string{"State", "failed", "Reason: boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := newFormatter(t, Config{Format: tt.format})
			out, err := f.Summary(NewRunSummary(j, tt.result, 1500*time.Millisecond))
			require.NoError(t, err)
			for _, want := range tt.want {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestFormatterErrors(t *testing.T) {
	_, err := NewFormatter(Config{Format: "xml"}, &mockLogger{})
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	f, err := ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatTree, f)
}
