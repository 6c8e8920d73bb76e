package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/sea-ice-obs/internal/adapter/sqlite"
	"github.com/couchcryptid/sea-ice-obs/internal/codec"
	"github.com/couchcryptid/sea-ice-obs/internal/domain"
	"github.com/couchcryptid/sea-ice-obs/internal/importer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCSV = "Date/Time,Latitude,Longitude,Observer\n" +
		"2026-01-03T10:00:00Z,-65.5,110.25,ann\n" +
		"2026-01-01T08:00:00Z,-64.75,111,bob\n"
	testASPeCt = `{"name":"SIPEX III","voyage_vessel":"Aurora"}` + "\n" +
		"[ASPeCt Observations]\n" +
		"date;time;latitude;longitude;observer\n" +
		"2026-01-05;14:30;-65.25;110.5;K. Smith\n"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDetect(t *testing.T) {
	out, _, err := runCLI(t, "detect", writeFile(t, "obs.csv", testASPeCt))
	require.NoError(t, err)
	assert.Equal(t, "tabular\n", out, ".csv extension wins over content")

	out, _, err = runCLI(t, "detect", writeFile(t, "20260105AU1", testCSV))
	require.NoError(t, err)
	assert.Equal(t, "aspect\n", out)

	_, _, err = runCLI(t, "detect", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Run("clean file", func(t *testing.T) {
		out, _, err := runCLI(t, "validate", writeFile(t, "voyage.txt", testASPeCt))
		require.NoError(t, err)
		assert.Contains(t, out, "Format:   aspect")
		assert.Contains(t, out, "Voyage:   SIPEX III")
		assert.Contains(t, out, "Accepted: 1")
		assert.Contains(t, out, "Rejected: 0")
	})

	t.Run("row errors exit non-zero with a table", func(t *testing.T) {
		path := writeFile(t, "obs.csv", testCSV+"2026-01-04T00:00:00Z,,110\nsoon,-60,110\n")

		out, _, err := runCLI(t, "validate", path)

		require.Error(t, err)
		assert.ErrorIs(t, err, errRowsRejected)
		assert.Contains(t, out, "Rejected: 2")
		assert.Contains(t, out, "missing_required_field")
		assert.Contains(t, out, "malformed_timestamp")
		assert.Contains(t, out, "Latitude")
	})
}

func TestConvert(t *testing.T) {
	src := writeFile(t, "voyage.txt", testASPeCt)

	t.Run("to tabular on stdout", func(t *testing.T) {
		out, _, err := runCLI(t, "convert", src, "--to", "csv")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, `"Date/Time"`))
		assert.Contains(t, out, `"K. Smith"`)
	})

	t.Run("to aspect file keeps the preamble", func(t *testing.T) {
		dst := filepath.Join(t.TempDir(), "out.txt")
		_, _, err := runCLI(t, "convert", src, "--to", "aspect", "--out", dst)
		require.NoError(t, err)

		data, err := os.ReadFile(dst)
		require.NoError(t, err)
		res := codec.DecodeASPeCt(string(data))
		require.True(t, res.OK())
		require.NotNil(t, res.Voyage)
		assert.Equal(t, "SIPEX III", res.Voyage.Name)
		assert.Len(t, res.Observations, 1)
	})

	t.Run("unknown target", func(t *testing.T) {
		_, _, err := runCLI(t, "convert", src, "--to", "xml")
		assert.ErrorIs(t, err, codec.ErrUnrecognizedFormat)
	})

	t.Run("target required", func(t *testing.T) {
		_, _, err := runCLI(t, "convert", src)
		assert.Error(t, err)
	})

	t.Run("refuses files with row errors", func(t *testing.T) {
		_, stderr, err := runCLI(t, "convert", writeFile(t, "bad.csv", testCSV+",,\n2026-01-01,200,0\n"), "--to", "aspect")
		assert.ErrorIs(t, err, errRowsRejected)
		assert.Contains(t, stderr, "out_of_range_value")
	})
}

func TestImportExportRoundTrip(t *testing.T) {
	db := filepath.Join(t.TempDir(), "obs.db")

	out, _, err := runCLI(t, "--db", db, "import", writeFile(t, "20260105AU1", testASPeCt))
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 observations (aspect)")

	_, _, err = runCLI(t, "--db", db, "import", writeFile(t, "obs.csv", testCSV))
	assert.ErrorIs(t, err, importer.ErrVoyageRequired)

	out, _, err = runCLI(t, "--db", db, "voyages")
	require.NoError(t, err)
	assert.Contains(t, out, "SIPEX III")
	assert.Contains(t, out, "Aurora")

	st, err := sqlite.Open(context.Background(), db, slog.Default())
	require.NoError(t, err)
	voyage, err := st.FindVoyageByName(context.Background(), "sipex iii")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, _, err = runCLI(t, "--db", db, "import", writeFile(t, "obs.csv", testCSV), "--voyage", voyage.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 observations (tabular)")

	out, _, err = runCLI(t, "--db", db, "export", voyage.ID, "--format", "tabular")
	require.NoError(t, err)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], `"2026-01-01T08:00:00Z"`), "ordered by observation time")
	assert.True(t, strings.HasPrefix(lines[3], `"2026-01-05T14:30:00Z"`))

	out, _, err = runCLI(t, "--db", db, "export", voyage.ID, "--format", "report")
	require.NoError(t, err)
	assert.Contains(t, out, "Voyage: SIPEX III")
	assert.Contains(t, out, "Observation 3")

	_, _, err = runCLI(t, "--db", db, "export", "missing")
	assert.Error(t, err)
}

func TestVoyages_Empty(t *testing.T) {
	out, _, err := runCLI(t, "--db", filepath.Join(t.TempDir(), "obs.db"), "voyages")
	require.NoError(t, err)
	assert.Equal(t, "No voyages.\n", out)
}

func TestReportImportFailure(t *testing.T) {
	t.Run("store failure", func(t *testing.T) {
		var out bytes.Buffer
		report := importer.ImportReport{VoyageID: "v1", Accepted: 3, Persisted: 2, IDs: []string{"a", "b"}}
		err := fmt.Errorf("%w 3 of 3: %w", importer.ErrPersistFailed, errors.New("disk full"))

		reportImportFailure(&out, report, err)

		assert.Equal(t, "Persisted 2 of 3 before failure into voyage v1\n  a\n  b\n", out.String())
	})

	t.Run("rejected rows", func(t *testing.T) {
		var out bytes.Buffer
		report := importer.ImportReport{Errors: []domain.RowError{{Line: 4, Kind: domain.KindOutOfRange, Message: "latitude 95 out of range"}}}

		reportImportFailure(&out, report, fmt.Errorf("%w: 1 of 3 rows failed validation", importer.ErrImportRejected))

		assert.Contains(t, out.String(), "latitude 95 out of range")
		assert.NotContains(t, out.String(), "Persisted")
	})

	t.Run("other errors print nothing", func(t *testing.T) {
		var out bytes.Buffer
		reportImportFailure(&out, importer.ImportReport{}, importer.ErrVoyageRequired)
		assert.Empty(t, out.String())
	})
}

func TestRenderRowErrors_RightAlignsLine(t *testing.T) {
	out := renderRowErrors([]domain.RowError{
		{Line: 4, Field: "latitude", Kind: domain.KindOutOfRange, Message: "out of range"},
		{Line: 120, Kind: domain.KindOutOfRange, Message: "out of range"},
	})

	assert.Contains(t, out, "│    4 │ latitude │")
	assert.Contains(t, out, "│  120 │")
}
