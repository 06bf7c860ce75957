package record_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/pidctl/internal/errors"
	"codeberg.org/mutker/pidctl/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	header := record.Header{
		Title: "PID-Controller Log File",
		Fields: []record.Field{
			{Name: "PV", Value: "debug"},
			{Name: "Kp", Value: "0.5"},
		},
	}

	sink, err := record.CreateFile(path, header)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sink.Append(ctx, record.Record{Elapsed: 500 * time.Millisecond, Corrected: 1.25, Current: 1}))

	// flushed per record, visible before Close
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "0.5, 1.25, 1\n")

	require.NoError(t, sink.Append(ctx, record.Record{Elapsed: time.Second, Corrected: -2, Current: 0.75}))
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	content, err = os.ReadFile(path)
	require.NoError(t, err)
	expected := "PID-Controller Log File\nPV: debug\nKp: 0.5\n\n" +
		"time, corrected Value, current Value\n" +
		"0.5, 1.25, 1\n" +
		"1, -2, 0.75\n"
	assert.Equal(t, expected, string(content))

	err = sink.Append(ctx, record.Record{})
	assert.True(t, errors.HasCode(err, errors.ErrRecordWrite))
}

func TestCreateFileTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	require.NoError(t, os.WriteFile(path, []byte("stale content that is long\n"), 0o600))

	sink, err := record.CreateFile(path, record.Header{Title: "T"})
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "T\n\ntime, corrected Value, current Value\n", string(content))
}

type memSink struct {
	records []record.Record
	closed  bool
	err     error
}

func (m *memSink) Append(_ context.Context, rec record.Record) error {
	m.records = append(m.records, rec)
	return m.err
}

func (m *memSink) Close() error {
	m.closed = true
	return m.err
}

func TestMulti(t *testing.T) {
	a, b := &memSink{}, &memSink{}
	sink := record.Multi(a, nil, b)

	require.NoError(t, sink.Append(context.Background(), record.Record{Current: 1}))
	require.NoError(t, sink.Close())

	assert.Len(t, a.records, 1)
	assert.Len(t, b.records, 1)
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestMultiCloseError(t *testing.T) {
	a, b := &memSink{err: fmt.Errorf("disk full")}, &memSink{}

	err := record.Multi(a, b).Close()
	assert.True(t, errors.HasCode(err, errors.ErrRecordClose))
	assert.True(t, b.closed, "every sink is closed even after an error")
}

func TestMultiEmpty(t *testing.T) {
	sink := record.Multi(nil)
	assert.NoError(t, sink.Append(context.Background(), record.Record{}))
	assert.NoError(t, sink.Close())
}
