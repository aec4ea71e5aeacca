package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/heartline/internal/engine"
	"github.com/Veraticus/heartline/internal/model"
	"github.com/Veraticus/heartline/internal/testutil"
)

// fakeSheets is a minimal in-memory stand-in for the Sheets REST API.
type fakeSheets struct {
	sheetTitles []string
	rows        [][]any
	requests    []string
	batches     []*sheets.BatchUpdateSpreadsheetRequest
	failUpdates []int
	mu          sync.Mutex
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets")
	f.requests = append(f.requests, r.Method+" "+path)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && path == "":
		var created sheets.Spreadsheet
		_ = json.NewDecoder(r.Body).Decode(&created)
		created.SpreadsheetId = "new-sheet"
		created.SpreadsheetUrl = "https://example.test/new-sheet"
		created.Sheets[0].Properties.SheetId = 7
		_ = json.NewEncoder(w).Encode(created)

	case r.Method == http.MethodGet:
		resp := sheets.Spreadsheet{SpreadsheetId: "existing", SpreadsheetUrl: "https://example.test/existing"}
		for i, title := range f.sheetTitles {
			resp.Sheets = append(resp.Sheets, &sheets.Sheet{
				Properties: &sheets.SheetProperties{SheetId: int64(i + 1), Title: title},
			})
		}
		_ = json.NewEncoder(w).Encode(resp)

	case strings.HasSuffix(path, ":batchUpdate"):
		var req sheets.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.batches = append(f.batches, &req)
		resp := sheets.BatchUpdateSpreadsheetResponse{}
		if len(req.Requests) > 0 && req.Requests[0].AddSheet != nil {
			resp.Replies = []*sheets.Response{{
				AddSheet: &sheets.AddSheetResponse{Properties: &sheets.SheetProperties{SheetId: 42}},
			}}
		}
		_ = json.NewEncoder(w).Encode(resp)

	case strings.HasSuffix(path, ":clear"):
		f.rows = nil
		_, _ = w.Write([]byte(`{}`))

	case r.Method == http.MethodPut:
		if len(f.failUpdates) > 0 {
			code := f.failUpdates[0]
			f.failUpdates = f.failUpdates[1:]
			w.WriteHeader(code)
			_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"fail"}}`, code)
			return
		}
		var vr sheets.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.rows = append(f.rows, vr.Values...)
		_, _ = w.Write([]byte(`{}`))

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeSheets) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

func newTestWriter(t *testing.T, fake *fakeSheets, mutate func(*Config)) *Writer {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	srv, err := sheets.NewService(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()),
		option.WithoutAuthentication())
	require.NoError(t, err)

	config := DefaultConfig()
	config.RetryDelay = time.Millisecond
	if mutate != nil {
		mutate(&config)
	}
	w, err := NewWriterWithService(srv, config, nil)
	require.NoError(t, err)
	return w
}

func sampleAnalyses() []model.Analysis {
	return []model.Analysis{
		testutil.NewAnalysis("a1").FromSource("ptbdb.csv", 0).WithProbability(0.9).Labeled(1).Build(),
		testutil.NewAnalysis("a2").FromSource("ptbdb.csv", 1).WithProbability(0.5).Build(),
		testutil.NewAnalysis("a3").FromSource("ptbdb.csv", 2).WithProbability(0.1).Labeled(1).Build(),
	}
}

func TestWriter_CreatesSpreadsheet(t *testing.T) {
	fake := &fakeSheets{}
	w := newTestWriter(t, fake, func(c *Config) { c.BatchSize = 2 })

	analyses := sampleAnalyses()
	target, err := w.Write(context.Background(), analyses, engine.Summarize(analyses))
	require.NoError(t, err)

	assert.Equal(t, "new-sheet", target.SpreadsheetID)
	assert.Equal(t, int64(7), target.SheetID)
	assert.Equal(t, 1, fake.count("POST /new-sheet/values/"))

	require.GreaterOrEqual(t, len(fake.rows), 4)
	assert.Equal(t, "Analyzed At", fake.rows[0][0])
	assert.Equal(t, "ptbdb.csv", fake.rows[1][1])
	assert.Equal(t, "ABNORMAL", fake.rows[1][4])
	assert.Equal(t, "UNCERTAIN", fake.rows[2][4])
	assert.Equal(t, "NORMAL", fake.rows[3][4])
	assert.Equal(t, "", fake.rows[2][6], "unlabeled rows leave the label blank")

	var summaryLabels []any
	for _, row := range fake.rows[4:] {
		if len(row) > 0 {
			summaryLabels = append(summaryLabels, row[0])
		}
	}
	assert.Contains(t, summaryLabels, "Summary")
	assert.Contains(t, summaryLabels, "Agreement with labels")

	// 4 data rows plus 8 summary rows in batches of 2.
	assert.Equal(t, 6, fake.count("PUT "))

	require.Len(t, fake.batches, 1)
	var ruleCount int
	for _, req := range fake.batches[0].Requests {
		if req.AddConditionalFormatRule != nil {
			ruleCount++
			assert.Equal(t, int64(7), req.AddConditionalFormatRule.Rule.Ranges[0].SheetId)
		}
	}
	assert.Equal(t, 3, ruleCount)
}

func TestWriter_ExistingSpreadsheet(t *testing.T) {
	t.Run("uses matching tab", func(t *testing.T) {
		fake := &fakeSheets{sheetTitles: []string{"Other", "Analyses"}}
		w := newTestWriter(t, fake, func(c *Config) {
			c.SpreadsheetID = "existing"
			c.EnableFormatting = false
		})

		target, err := w.Write(context.Background(), sampleAnalyses(), nil)
		require.NoError(t, err)
		assert.Equal(t, int64(2), target.SheetID)
		assert.Empty(t, fake.batches)
		assert.Len(t, fake.rows, 4)
	})

	t.Run("adds missing tab", func(t *testing.T) {
		fake := &fakeSheets{sheetTitles: []string{"Other"}}
		w := newTestWriter(t, fake, func(c *Config) {
			c.SpreadsheetID = "existing"
			c.EnableFormatting = false
		})

		target, err := w.Write(context.Background(), sampleAnalyses(), nil)
		require.NoError(t, err)
		assert.Equal(t, int64(42), target.SheetID)
		require.Len(t, fake.batches, 1)
		assert.Equal(t, "Analyses", fake.batches[0].Requests[0].AddSheet.Properties.Title)
	})
}

func TestWriter_Retries(t *testing.T) {
	t.Run("server errors are retried", func(t *testing.T) {
		fake := &fakeSheets{failUpdates: []int{http.StatusServiceUnavailable}}
		w := newTestWriter(t, fake, func(c *Config) { c.EnableFormatting = false })

		_, err := w.Write(context.Background(), sampleAnalyses(), nil)
		require.NoError(t, err)
		assert.Equal(t, 2, fake.count("PUT "))
		assert.Len(t, fake.rows, 4)
	})

	t.Run("client errors are not", func(t *testing.T) {
		fake := &fakeSheets{failUpdates: []int{http.StatusBadRequest}}
		w := newTestWriter(t, fake, func(c *Config) { c.EnableFormatting = false })

		_, err := w.Write(context.Background(), sampleAnalyses(), nil)
		require.Error(t, err)
		assert.Equal(t, 1, fake.count("PUT "))
	})
}

func TestNewWriterWithService_Validates(t *testing.T) {
	_, err := NewWriterWithService(nil, DefaultConfig(), nil)
	assert.ErrorContains(t, err, "sheets service is required")
}
