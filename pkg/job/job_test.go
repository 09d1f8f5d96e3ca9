package job

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sonemaro/sortitor/pkg/logger"
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
	logs []string
}

func (m *mockLogger) Info(msg string)                               { m.logs = append(m.logs, "INFO: "+msg) }
func (m *mockLogger) Debug(msg string)                              { m.logs = append(m.logs, "DEBUG: "+msg) }
func (m *mockLogger) Error(msg string)                              { m.logs = append(m.logs, "ERROR: "+msg) }
func (m *mockLogger) Warn(msg string)                               { m.logs = append(m.logs, "WARN: "+msg) }
func (m *mockLogger) Trace(msg string)                              { m.logs = append(m.logs, "TRACE: "+msg) }
func (m *mockLogger) WithFields(fields logger.Fields) logger.Logger { return m }

func group(t *testing.T, pairs ...string) *rules.Group {
	t.Helper()
	g := rules.NewGroup(rules.DefaultGroup)
	for i := 0; i+1 < len(pairs); i += 2 {
		require.NoError(t, g.Set(pairs[i], pairs[i+1]))
	}
	return g
}

func writeFiles(t *testing.T, fs afero.Fs, files ...string) {
	t.Helper()
	for _, p := range files {
		require.NoError(t, fs.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, afero.WriteFile(fs, p, []byte(p), 0o644))
	}
}

func newRunner(t *testing.T, fs afero.Fs, slot worker.Slot) *Runner {
	t.Helper()
	r, err := NewRunner(Config{Scan: scanner.Config{MaxDepth: -1}}, fs, slot, logger.Nop())
	require.NoError(t, err)
	return r
}

// collect drains the event stream of h.
func collect(t *testing.T, h *Handle) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-h.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("event stream was not closed")
			return events
		}
	}
}

func assertStream(t *testing.T, events []Event) {
	t.Helper()
	require.NotEmpty(t, events)
	terminal := 0
	for i, ev := range events {
		assert.Equal(t, uint64(i+1), ev.Sequence(), "sequence numbers are contiguous")
		switch ev.(type) {
		case *Summary, *Failure:
			terminal++
			assert.Equal(t, len(events)-1, i, "terminal event is last")
		}
	}
	assert.Equal(t, 1, terminal, "exactly one terminal event")
}

func progressEvents(events []Event) []*Progress {
	var out []*Progress
	for _, ev := range events {
		if p, ok := ev.(*Progress); ok {
			out = append(out, p)
		}
	}
	return out
}

func logMessages(events []Event) []string {
	var out []string
	for _, ev := range events {
		if l, ok := ev.(*LogLine); ok {
			out = append(out, l.Message)
		}
	}
	return out
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		target   string
		mode     transfer.Mode
		group    *rules.Group
		wantCode ErrorCode
	}{
		{name: "empty source", source: " ", target: "/dst", mode: transfer.Copy, group: group(t, "pdf", "Docs"), wantCode: ErrEmptySource},
		{name: "empty target", source: "/src", target: "", mode: transfer.Copy, group: group(t, "pdf", "Docs"), wantCode: ErrEmptyTarget},
		{name: "bad mode", source: "/src", target: "/dst", mode: "link", group: group(t, "pdf", "Docs"), wantCode: ErrInvalidMode},
		{name: "empty rule group", source: "/src", target: "/dst", mode: transfer.Copy, group: group(t), wantCode: ErrEmptyRules},
		{name: "nil rule group", source: "/src", target: "/dst", mode: transfer.Copy, group: nil, wantCode: ErrEmptyRules},
		{name: "same directory", source: "/src", target: "/src/", mode: transfer.Move, group: group(t, "pdf", "Docs"), wantCode: ErrSameDirectory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := New(tt.source, tt.target, tt.mode, tt.group)
			assert.Nil(t, j)
			assert.True(t, IsCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestJobSnapshotIsPrivate(t *testing.T) {
	g := group(t, "pdf", "Docs")
	j, err := New("/src", "/dst", transfer.Copy, g)
	require.NoError(t, err)

	require.NoError(t, g.Set("pdf", "Elsewhere"))
	require.NoError(t, g.Set("jpg", "Pics"))

	assert.Equal(t, []rules.Rule{{Keyword: "pdf", Folder: "Docs"}}, j.Rules().Rules())
	assert.Equal(t, rules.DefaultGroup, j.GroupName())
}

func TestStartValidation(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/file.txt")
	r := newRunner(t, fs, nil)

	j, err := New("/missing", "/dst", transfer.Copy, group(t, "pdf", "Docs"))
	require.NoError(t, err)
	_, err = r.Start(context.Background(), j)
	assert.True(t, IsCode(err, ErrSourceMissing))

	j, err = New("/file.txt", "/dst", transfer.Copy, group(t, "pdf", "Docs"))
	require.NoError(t, err)
	_, err = r.Start(context.Background(), j)
	assert.True(t, IsCode(err, ErrSourceNotDir))

	exists, _ := afero.DirExists(fs, "/dst")
	assert.False(t, exists, "rejected jobs touch nothing")
}

func TestRunScenarios(t *testing.T) {
	tests := []struct {
		name   string
		mode   transfer.Mode
		rules  []string
		files  []string
		source string
		target string
		want   Counts
		verify func(*testing.T, afero.Fs, []Event)
	}{
		{
			name:   "report.PDF lands in Documents",
			mode:   transfer.Copy,
			rules:  []string{"pdf", "Documents"},
			files:  []string{"/src/report.PDF"},
			source: "/src",
			target: "/dst",
			want:   Counts{Processed: 1},
			verify: func(t *testing.T, fs afero.Fs, events []Event) {
				exists, _ := afero.Exists(fs, "/dst/Documents/report.PDF")
				assert.True(t, exists)
				assert.Contains(t, logMessages(events), "copied: report.PDF -> Documents/")
			},
		},
		{
			name:   "same name from two folders",
			mode:   transfer.Copy,
			rules:  []string{"txt", "Text"},
			files:  []string{"/src/one/a.txt", "/src/two/a.txt"},
			source: "/src",
			target: "/dst",
			want:   Counts{Processed: 2},
			verify: func(t *testing.T, fs afero.Fs, events []Event) {
				for _, p := range []string{"/dst/Text/a.txt", "/dst/Text/a_1.txt"} {
					exists, _ := afero.Exists(fs, p)
					assert.True(t, exists, p)
				}
			},
		},
		{
			name:   "hidden and unmatched files are skipped",
			mode:   transfer.Copy,
			rules:  []string{"pdf", "Documents"},
			files:  []string{"/src/.hidden.pdf", "/src/photo.jpg", "/src/doc.pdf"},
			source: "/src",
			target: "/dst",
			want:   Counts{Processed: 1, Skipped: 2},
		},
		{
			name:   "move empties the source",
			mode:   transfer.Move,
			rules:  []string{"txt", "Text"},
			files:  []string{"/src/a.txt", "/src/deep/b.txt"},
			source: "/src",
			target: "/dst",
			want:   Counts{Processed: 2},
			verify: func(t *testing.T, fs afero.Fs, events []Event) {
				for _, p := range []string{"/src/a.txt", "/src/deep/b.txt"} {
					exists, _ := afero.Exists(fs, p)
					assert.False(t, exists, p)
				}
				assert.Contains(t, logMessages(events), "moved: b.txt -> Text/")
			},
		},
		{
			name:   "target inside source is not rescanned",
			mode:   transfer.Copy,
			rules:  []string{"txt", "Text"},
			files:  []string{"/src/a.txt", "/src/sorted/Text/old.txt"},
			source: "/src",
			target: "/src/sorted",
			want:   Counts{Processed: 1},
		},
		{
			name:   "empty source completes with zero counts",
			mode:   transfer.Copy,
			rules:  []string{"txt", "Text"},
			files:  []string{"/src/sub/.keep"},
			source: "/src/sub/empty",
			target: "/dst",
			want:   Counts{},
			verify: func(t *testing.T, fs afero.Fs, events []Event) {
				assert.Empty(t, progressEvents(events))
				summary := events[len(events)-1].(*Summary)
				assert.Equal(t, 0, summary.Total)
				assert.False(t, summary.Partial)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeFiles(t, fs, tt.files...)
			require.NoError(t, fs.MkdirAll(tt.source, 0o755))

			j, err := New(tt.source, tt.target, tt.mode, group(t, tt.rules...))
			require.NoError(t, err)

			h, err := newRunner(t, fs, nil).Start(context.Background(), j)
			require.NoError(t, err)
			assert.NotEmpty(t, h.ID())

			events := collect(t, h)
			result := h.Wait()

			assertStream(t, events)
			assert.Equal(t, Completed, result.State)
			assert.Equal(t, tt.want, result.Counts)
			assert.Equal(t, tt.want, h.Counts())
			assert.Equal(t, Completed, h.State())

			summary, ok := events[len(events)-1].(*Summary)
			require.True(t, ok)
			assert.Equal(t, tt.want, summary.Counts)

			progress := progressEvents(events)
			for i, p := range progress {
				assert.Equal(t, i+1, p.Index, "progress is monotonic")
				assert.Equal(t, len(progress), p.Total)
			}

			if tt.verify != nil {
				tt.verify(t, fs, events)
			}
		})
	}
}

func TestCopyTwiceAddsSuffixes(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/src/a.txt")
	r := newRunner(t, fs, nil)

	for run := 0; run < 2; run++ {
		j, err := New("/src", "/dst", transfer.Copy, group(t, "txt", "Text"))
		require.NoError(t, err)
		h, err := r.Start(context.Background(), j)
		require.NoError(t, err)
		h.Discard()
		assert.Equal(t, "completed(1,0,0)", h.Wait().String())
	}

	for _, p := range []string{"/dst/Text/a.txt", "/dst/Text/a_1.txt"} {
		exists, _ := afero.Exists(fs, p)
		assert.True(t, exists, p)
	}
}

func TestUncreatableTargetFails(t *testing.T) {
	base := afero.NewMemMapFs()
	writeFiles(t, base, "/src/report.pdf")
	fs := afero.NewReadOnlyFs(base)

	j, err := New("/src", "/dst", transfer.Copy, group(t, "pdf", "Documents"))
	require.NoError(t, err)
	h, err := newRunner(t, fs, nil).Start(context.Background(), j)
	require.NoError(t, err)

	events := collect(t, h)
	result := h.Wait()

	assertStream(t, events)
	assert.Equal(t, Failed, result.State)
	assert.Equal(t, Counts{}, result.Counts)
	assert.Contains(t, result.String(), "failed(cannot create target directory /dst")

	failure, ok := events[len(events)-1].(*Failure)
	require.True(t, ok)
	assert.Equal(t, int64(0), failure.Counts.Processed)
	assert.Empty(t, progressEvents(events))
}

func TestCancelBeforeScan(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/src/a.txt", "/src/b.txt")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	j, err := New("/src", "/dst", transfer.Copy, group(t, "txt", "Text"))
	require.NoError(t, err)
	h, err := newRunner(t, fs, nil).Start(ctx, j)
	require.NoError(t, err)

	events := collect(t, h)
	result := h.Wait()

	assertStream(t, events)
	assert.Equal(t, Cancelled, result.State)
	summary := events[len(events)-1].(*Summary)
	assert.True(t, summary.Partial)
	assert.Equal(t, "cancelled(0,0,0)", result.String())
}

func TestCancelMidRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/src/1.txt", "/src/2.txt", "/src/3.txt", "/src/4.txt")

	// one file per second keeps the run busy long enough to cancel it
	slot, err := worker.NewSlot(worker.Config{RateLimit: 1})
	require.NoError(t, err)

	j, err := New("/src", "/dst", transfer.Copy, group(t, "txt", "Text"))
	require.NoError(t, err)
	r := newRunner(t, fs, slot)
	h, err := r.Start(context.Background(), j)
	require.NoError(t, err)
	assert.True(t, r.Busy())

	var events []Event
	for ev := range h.Events() {
		events = append(events, ev)
		if _, ok := ev.(*Progress); ok {
			h.Cancel()
		}
	}
	result := h.Wait()

	assertStream(t, events)
	assert.Equal(t, Cancelled, result.State)
	assert.Equal(t, int64(1), result.Counts.Processed)
	assert.Equal(t, 4, result.Total)
	assert.True(t, events[len(events)-1].(*Summary).Partial)
	assert.Contains(t, logMessages(events), "cancelled by user")
}

func TestSecondStartIsRefused(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/src/1.txt", "/src/2.txt", "/src/3.txt")

	slot, err := worker.NewSlot(worker.Config{RateLimit: 1})
	require.NoError(t, err)
	r := newRunner(t, fs, slot)

	j, err := New("/src", "/dst", transfer.Copy, group(t, "txt", "Text"))
	require.NoError(t, err)
	h, err := r.Start(context.Background(), j)
	require.NoError(t, err)

	_, err = r.Start(context.Background(), j)
	assert.True(t, errors.Is(err, worker.ErrBusy))

	h.Cancel()
	h.Discard()
	assert.Equal(t, Cancelled, h.Wait().State)
	assert.False(t, r.Busy())
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 50.0, (&Progress{Index: 1, Total: 2}).Percent())
	assert.Equal(t, 100.0, (&Progress{}).Percent())
}
