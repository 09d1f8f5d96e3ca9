package organizer

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sonemaro/sortitor/pkg/job"
	"github.com/sonemaro/sortitor/pkg/logger"
	"github.com/sonemaro/sortitor/pkg/rulepkg"
	"github.com/sonemaro/sortitor/pkg/rules"
	"github.com/sonemaro/sortitor/pkg/scanner"
	"github.com/sonemaro/sortitor/pkg/transfer"
	"github.com/sonemaro/sortitor/pkg/worker"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

type mockLogger struct {
	mu   sync.Mutex
	logs []string
}

func (m *mockLogger) add(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, s)
}

func (m *mockLogger) entries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.logs...)
}

func (m *mockLogger) Info(msg string)                               { m.add("INFO: " + msg) }
func (m *mockLogger) Debug(msg string)                              { m.add("DEBUG: " + msg) }
func (m *mockLogger) Error(msg string)                              { m.add("ERROR: " + msg) }
func (m *mockLogger) Warn(msg string)                               { m.add("WARN: " + msg) }
func (m *mockLogger) Trace(msg string)                              { m.add("TRACE: " + msg) }
func (m *mockLogger) WithFields(fields logger.Fields) logger.Logger { return m }

// countingFs counts the calls that reach the filesystem.
type countingFs struct {
	afero.Fs
	calls atomic.Int64
}

func (c *countingFs) Stat(name string) (os.FileInfo, error) {
	c.calls.Add(1)
	return c.Fs.Stat(name)
}

func (c *countingFs) MkdirAll(path string, perm os.FileMode) error {
	c.calls.Add(1)
	return c.Fs.MkdirAll(path, perm)
}

func (c *countingFs) Open(name string) (afero.File, error) {
	c.calls.Add(1)
	return c.Fs.Open(name)
}

const rulesFile = "/config/file_rules.json"

func newOrganizer(t *testing.T, fs afero.Fs) (*Organizer, *mockLogger) {
	t.Helper()
	log := &mockLogger{}
	o, err := New(Config{
		RulesFile: rulesFile,
		Runner:    job.Config{Scan: scanner.Config{MaxDepth: -1}},
	}, fs, nil, log)
	require.NoError(t, err)
	return o, log
}

func reload(t *testing.T, fs afero.Fs) *rules.Store {
	t.Helper()
	s, err := rules.Load(fs, rulesFile, logger.Nop())
	require.NoError(t, err)
	return s
}

func TestRuleOperationsPersist(t *testing.T) {
	fs := afero.NewMemMapFs()
	o, log := newOrganizer(t, fs)

	require.NoError(t, o.AddRule("pdf", "Documents", ""))
	require.NoError(t, o.AddRule("invoice", "", ""))
	require.NoError(t, o.AddRule("jpg", "Pictures", "photos"))
	require.NoError(t, o.AddGroup("work"))
	require.NoError(t, o.RenameGroup("work", "office"))
	require.NoError(t, o.SetCurrentGroup("photos"))

	s := reload(t, fs)
	assert.Equal(t, []string{rules.DefaultGroup, "photos", "office"}, s.Groups())
	assert.Equal(t, "photos", s.Current())
	got, err := s.ListRules(rules.DefaultGroup)
	require.NoError(t, err)
	assert.Equal(t, []rules.Rule{
		{Keyword: "pdf", Folder: "Documents"},
		{Keyword: "invoice", Folder: "invoice"},
	}, got)

	require.NoError(t, o.DeleteRule("jpg", ""))
	require.NoError(t, o.DeleteGroup("photos"))
	s = reload(t, fs)
	assert.Equal(t, []string{rules.DefaultGroup, "office"}, s.Groups())
	assert.Equal(t, rules.DefaultGroup, s.Current())
	assert.Equal(t, rules.DefaultGroup, o.CurrentGroup())

	assert.Contains(t, log.entries(), "INFO: Rule added")
	assert.Contains(t, log.entries(), "INFO: Rule group renamed")
}

func TestGroupsListing(t *testing.T) {
	o, _ := newOrganizer(t, afero.NewMemMapFs())
	require.NoError(t, o.AddRule("pdf", "Documents", ""))
	require.NoError(t, o.AddGroup("work"))
	require.NoError(t, o.SetCurrentGroup("work"))

	assert.Equal(t, []GroupInfo{
		{Name: rules.DefaultGroup, Rules: 1},
		{Name: "work", Rules: 0, Current: true},
	}, o.Groups())
}

func TestFailedMutationChangesNothing(t *testing.T) {
	fs := afero.NewMemMapFs()
	o, _ := newOrganizer(t, fs)
	require.NoError(t, o.AddRule("pdf", "Documents", ""))

	tests := []struct {
		name string
		op   func() error
		code rules.ErrorCode
	}{
		{name: "delete default group", op: func() error { return o.DeleteGroup(rules.DefaultGroup) }, code: rules.ErrDefaultReserved},
		{name: "rename default group", op: func() error { return o.RenameGroup(rules.DefaultGroup, "x") }, code: rules.ErrDefaultReserved},
		{name: "empty keyword", op: func() error { return o.AddRule(" ", "x", "") }, code: rules.ErrEmptyKeyword},
		{name: "missing rule", op: func() error { return o.DeleteRule("nope", "") }, code: rules.ErrRuleNotFound},
		{name: "missing group", op: func() error { return o.SetCurrentGroup("nope") }, code: rules.ErrGroupNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op()
			assert.True(t, rules.IsCode(err, tt.code), "got %v", err)
			assert.Equal(t, []string{rules.DefaultGroup}, reload(t, fs).Groups())
			got, err := o.ListRules("")
			require.NoError(t, err)
			assert.Len(t, got, 1)
		})
	}
}

func TestSaveFailureKeepsStore(t *testing.T) {
	base := afero.NewMemMapFs()
	o, log := newOrganizer(t, afero.NewReadOnlyFs(base))

	err := o.AddRule("pdf", "Documents", "")
	assert.Error(t, err)
	got, err := o.ListRules("")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Contains(t, log.entries(), "ERROR: Failed to save rules")
}

func TestStartOrganizeEmptyGroupTouchesNothing(t *testing.T) {
	fs := &countingFs{Fs: afero.NewMemMapFs()}
	o, _ := newOrganizer(t, fs)
	before := fs.calls.Load()

	_, err := o.StartOrganize(context.Background(), "/src", "/dst", transfer.Copy, "")
	assert.True(t, job.IsCode(err, job.ErrEmptyRules), "got %v", err)
	assert.Equal(t, before, fs.calls.Load(), "no filesystem access before validation passes")
	assert.Nil(t, o.Active())
}

func TestStartOrganize(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/src/report.PDF", []byte("x"), 0o644))
	o, _ := newOrganizer(t, fs)
	require.NoError(t, o.AddRule("pdf", "Documents", ""))

	h, err := o.StartOrganize(context.Background(), "/src", "/dst", transfer.Copy, "")
	require.NoError(t, err)
	h.Discard()

	result := h.Wait()
	assert.Equal(t, "completed(1,0,0)", result.String())
	exists, _ := afero.Exists(fs, "/dst/Documents/report.PDF")
	assert.True(t, exists)
	assert.Nil(t, o.Active())

	// edits after the start do not affect a finished job, and a new one can start
	require.NoError(t, o.AddRule("x", "y", ""))
	h, err = o.StartOrganize(context.Background(), "/src", "/dst", transfer.Copy, rules.DefaultGroup)
	require.NoError(t, err)
	h.Discard()
	assert.Equal(t, job.Completed, h.Wait().State)

	_, err = o.StartOrganize(context.Background(), "/src", "/dst", transfer.Copy, "nope")
	assert.True(t, rules.IsCode(err, rules.ErrGroupNotFound))
}

func TestSecondStartWhileActive(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, p := range []string{"/src/1.txt", "/src/2.txt", "/src/3.txt"} {
		require.NoError(t, afero.WriteFile(fs, p, []byte("x"), 0o644))
	}

	slot, err := worker.NewSlot(worker.Config{RateLimit: 1})
	require.NoError(t, err)
	o, err := New(Config{RulesFile: rulesFile, Runner: job.Config{Scan: scanner.Config{MaxDepth: -1}}}, fs, slot, &mockLogger{})
	require.NoError(t, err)
	require.NoError(t, o.AddRule("txt", "Text", ""))

	h, err := o.StartOrganize(context.Background(), "/src", "/dst", transfer.Copy, "")
	require.NoError(t, err)
	assert.Same(t, h, o.Active())

	_, err = o.StartOrganize(context.Background(), "/src", "/dst", transfer.Copy, "")
	assert.True(t, errors.Is(err, ErrJobActive))

	require.NoError(t, o.Cancel(h))
	h.Discard()

	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("job did not stop")
	}
	assert.Equal(t, job.Cancelled, h.Wait().State)
	assert.True(t, errors.Is(o.Cancel(h), ErrNoJob))
	assert.True(t, errors.Is(o.Cancel(nil), ErrNoJob))
}

func TestRulePackageRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	src, _ := newOrganizer(t, fs)
	require.NoError(t, src.AddRule("pdf", "Documents", ""))
	require.NoError(t, src.AddRule("发票", "财务", "work"))

	p, err := src.ExportRulePackage("/exports/all.json", rulepkg.AllScope())
	require.NoError(t, err)
	assert.Equal(t, 2, p.RuleCount())

	other := afero.NewMemMapFs()
	data, err := afero.ReadFile(fs, "/exports/all.json")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(other, "/in/all.json", data, 0o644))

	dst, _ := newOrganizer(t, other)
	require.NoError(t, dst.AddRule("old", "Old", "stale"))
	report, err := dst.ImportRulePackage("/in/all.json", rulepkg.ImportOptions{Strategy: rulepkg.OverwriteAll})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Rules)

	assert.Equal(t, src.Snapshot().Groups(), dst.Snapshot().Groups())
	assert.Equal(t, src.Snapshot().Groups(), reload(t, other).Groups())
	got, err := dst.ListRules("work")
	require.NoError(t, err)
	assert.Equal(t, []rules.Rule{{Keyword: "发票", Folder: "财务"}}, got)
}

func TestImportInvalidPackageKeepsStore(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in/bad.json", []byte(`{"version":"1.0"}`), 0o644))
	o, _ := newOrganizer(t, fs)
	require.NoError(t, o.AddRule("pdf", "Documents", ""))

	_, err := o.ImportRulePackage("/in/bad.json", rulepkg.ImportOptions{Strategy: rulepkg.OverwriteAll})
	var verr *rulepkg.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"type", "created_at", "rules or rule_groups"}, verr.Fields)

	got, err := o.ListRules("")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestNewRequiresRulesFile(t *testing.T) {
	_, err := New(Config{}, afero.NewMemMapFs(), nil, &mockLogger{})
	assert.Error(t, err)
}
