package runtime_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/mashd/internal/testutil"
	"github.com/thomasrohde/mashd/pkg/config"
	"github.com/thomasrohde/mashd/pkg/diagnostics"
	"github.com/thomasrohde/mashd/pkg/evaluator"
	"github.com/thomasrohde/mashd/pkg/runtime"
	"github.com/thomasrohde/mashd/pkg/value"
)

const unionDoc = `
schemas:
  patient: {id: Integer, name: Text}
datasets:
  a: {schema: patient, adapter: csv, source: a.csv}
  b: {schema: patient, adapter: csv, source: b.csv}
combine:
  left: a
  right: b
  operation: union
output:
  table: true
`

func setup(t *testing.T, doc string, aN, bN int) string {
	t.Helper()
	dir := t.TempDir()
	header := []string{"id", "name"}
	testutil.WriteCSV(t, dir, "a.csv", header, testutil.PatientRecords(1, aN))
	testutil.WriteCSV(t, dir, "b.csv", header, testutil.PatientRecords(100, bN))
	path := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestRunPipeline(t *testing.T) {
	path := setup(t, unionDoc, 2, 3)
	var out bytes.Buffer
	var events []evaluator.TraceEvent
	rt := runtime.New(
		runtime.WithOutput(&out),
		runtime.WithTrace(func(e evaluator.TraceEvent) { events = append(events, e) }),
	)

	res, err := rt.RunPipeline(context.Background(), path)
	require.NoError(t, err)
	ds, ok := res.Value.(*value.Dataset)
	require.True(t, ok, "result is %T", res.Value)
	assert.Len(t, ds.Rows, 5)
	assert.Contains(t, out.String(), "Patient 102")

	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err, "generated run id %q", res.RunID)
	require.NotEmpty(t, events)
	for _, e := range events {
		assert.Equal(t, res.RunID, e.RunID)
	}
	assert.Equal(t, evaluator.TraceRunStart, events[0].Event)
	assert.Equal(t, evaluator.TraceRunEnd, events[len(events)-1].Event)
}

func TestRunIDPerRun(t *testing.T) {
	path := setup(t, unionDoc, 1, 1)
	rt := runtime.New()
	first, err := rt.RunPipeline(context.Background(), path)
	require.NoError(t, err)
	second, err := rt.RunPipeline(context.Background(), path)
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)

	fixed := runtime.New(runtime.WithRunID("run-1"))
	res, err := fixed.RunPipeline(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "run-1", res.RunID)
}

func TestConfigDrivesExecution(t *testing.T) {
	doc := strings.Replace(unionDoc, "operation: union", "operation: join", 1)
	path := setup(t, doc, 3, 3)

	cfg := config.Defaults()
	cfg.Join.CartesianWarningRows = 2
	res, err := runtime.New(runtime.WithConfig(cfg)).RunPipeline(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, 9, res.Warnings[0].ResultRows)

	res, err = runtime.New().RunPipeline(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
}

func TestConfigRestrictsAdapters(t *testing.T) {
	path := setup(t, unionDoc, 1, 1)
	cfg := config.Defaults()
	cfg.Adapters.Allow = []string{"sqlite"}
	rt := runtime.New(runtime.WithConfig(cfg))

	assert.Equal(t, []string{"sqlite"}, rt.Adapters().Names())

	res, err := rt.RunPipeline(context.Background(), path)
	require.Error(t, err)
	d := runtime.Diagnose(err)
	assert.Equal(t, diagnostics.EValidation, d.Code)
	assert.Contains(t, d.Message, "unsupported adapter 'csv'")
	require.NotNil(t, res)
	assert.NotEmpty(t, res.Globals)

	diags := rt.Check(path)
	require.Len(t, diags, 2)
	for _, d := range diags {
		assert.Equal(t, diagnostics.EValidation, d.Code)
		require.NotNil(t, d.Span)
		assert.Equal(t, path, d.Span.File)
	}
	assert.Contains(t, diags[0].Message, "dataset 'a'")
	assert.Contains(t, diags[1].Message, "dataset 'b'")
}

func TestCheck(t *testing.T) {
	path := setup(t, unionDoc, 1, 1)
	assert.Empty(t, runtime.New().Check(path))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("combine: {left: a, right: b}\n"), 0o644))
	diags := runtime.New().Check(bad)
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostics.EPipeline, diags[0].Code)

	diags = runtime.New().Check(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostics.EIO, diags[0].Code)
}

func TestDatasetLoadFailure(t *testing.T) {
	path := setup(t, unionDoc, 1, 1)
	require.NoError(t, os.Remove(filepath.Join(filepath.Dir(path), "b.csv")))

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	res, err := runtime.New(runtime.WithLogger(logger), runtime.WithRunID("r")).RunPipeline(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, diagnostics.EDatasetLoad, runtime.Diagnose(err).Code)
	assert.Equal(t, "r", res.RunID)
	assert.Contains(t, logs.String(), "run failed")
	assert.Contains(t, logs.String(), "run_id=r")
}
