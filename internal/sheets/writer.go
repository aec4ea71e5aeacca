package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/heartline/internal/common"
	"github.com/Veraticus/heartline/internal/model"
	"github.com/Veraticus/heartline/internal/service"
)

// Header is the first row of the exported sheet.
var Header = []any{
	"Analyzed At", "Source", "Row", "P(abnormal)", "Decision", "Confidence",
	"True Label", "Abnormal Threshold", "Uncertain Margin", "ID",
}

const decisionColumn = 4

var decisionColors = map[model.DecisionLabel]*sheets.Color{
	model.LabelAbnormal:  {Red: 0.96, Green: 0.80, Blue: 0.80},
	model.LabelUncertain: {Red: 0.99, Green: 0.90, Blue: 0.80},
	model.LabelNormal:    {Red: 0.85, Green: 0.93, Blue: 0.83},
}

// Writer exports analyses to a spreadsheet.
type Writer struct {
	service  *sheets.Service
	logger   *slog.Logger
	location *time.Location
	config   Config
}

// Target identifies the spreadsheet tab that was written.
type Target struct {
	SpreadsheetID string
	URL           string
	SheetTitle    string
	SheetID       int64
}

// NewWriter authenticates with the configured method and returns a Writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	client, err := httpClient(ctx, config)
	if err != nil {
		return nil, err
	}
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return NewWriterWithService(srv, config, logger)
}

// NewWriterWithService returns a Writer on an existing API client.
func NewWriterWithService(srv *sheets.Service, config Config, logger *slog.Logger) (*Writer, error) {
	if srv == nil {
		return nil, errors.New("sheets service is required")
	}
	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive")
	}
	loc, err := time.LoadLocation(config.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", config.TimeZone, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{service: srv, logger: logger, location: loc, config: config}, nil
}

func httpClient(ctx context.Context, config Config) (*http.Client, error) {
	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}
		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		return jwtConfig.Client(ctx), nil
	}

	token, err := GetOrCreateToken(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("google sheets authentication failed: %w", err)
	}
	return oauth2.NewClient(ctx, oauthConfig(config).TokenSource(ctx, token)), nil
}

// Write replaces the contents of the target tab with analyses followed by
// the summary block.
func (w *Writer) Write(ctx context.Context, analyses []model.Analysis, summary *service.AnalysisSummary) (*Target, error) {
	w.logger.Info("Exporting analyses to Google Sheets", "analyses", len(analyses))

	target, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	if err := w.retry(ctx, func() error { return w.clearSheet(ctx, target) }); err != nil {
		return nil, fmt.Errorf("failed to clear sheet: %w", err)
	}

	values := w.rows(analyses, summary)
	for start := 0; start < len(values); start += w.config.BatchSize {
		end := min(start+w.config.BatchSize, len(values))
		batch := values[start:end]
		if err := w.retry(ctx, func() error { return w.writeBatch(ctx, target, start, batch) }); err != nil {
			return nil, fmt.Errorf("failed to write batch starting at row %d: %w", start+1, err)
		}
		w.logger.Debug("Wrote batch", "start_row", start+1, "rows", len(batch))
	}

	if w.config.EnableFormatting {
		if err := w.retry(ctx, func() error { return w.applyFormatting(ctx, target, len(analyses)) }); err != nil {
			// Data is already written.
			w.logger.Warn("Failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("Export complete", "spreadsheet", target.SpreadsheetID, "rows", len(values))
	return target, nil
}

func (w *Writer) retry(ctx context.Context, op func() error) error {
	return common.WithRetry(ctx, func() error {
		err := op()
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			retryable := apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
			return &common.RetryableError{Err: err, Retryable: retryable}
		}
		return err
	}, common.RetryOptions{
		MaxAttempts:  max(w.config.RetryAttempts, 1),
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	})
}

func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (*Target, error) {
	if w.config.SpreadsheetID == "" {
		return w.createSpreadsheet(ctx)
	}

	existing, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
	}
	target := &Target{
		SpreadsheetID: existing.SpreadsheetId,
		URL:           existing.SpreadsheetUrl,
		SheetTitle:    w.config.SheetTitle,
	}
	for _, sheet := range existing.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == w.config.SheetTitle {
			target.SheetID = sheet.Properties.SheetId
			return target, nil
		}
	}

	resp, err := w.service.Spreadsheets.BatchUpdate(existing.SpreadsheetId, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: w.config.SheetTitle},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to add sheet %q: %w", w.config.SheetTitle, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil {
		return nil, fmt.Errorf("unable to add sheet %q: empty reply", w.config.SheetTitle)
	}
	target.SheetID = resp.Replies[0].AddSheet.Properties.SheetId
	w.logger.Info("Added sheet", "title", w.config.SheetTitle, "sheet_id", target.SheetID)
	return target, nil
}

func (w *Writer) createSpreadsheet(ctx context.Context) (*Target, error) {
	created, err := w.service.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{Title: w.config.SheetTitle}},
		},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	target := &Target{
		SpreadsheetID: created.SpreadsheetId,
		URL:           created.SpreadsheetUrl,
		SheetTitle:    w.config.SheetTitle,
	}
	if len(created.Sheets) > 0 && created.Sheets[0].Properties != nil {
		target.SheetID = created.Sheets[0].Properties.SheetId
	}
	w.logger.Info("Created new spreadsheet", "id", target.SpreadsheetID, "url", target.URL)
	return target, nil
}

func (w *Writer) clearSheet(ctx context.Context, target *Target) error {
	_, err := w.service.Spreadsheets.Values.
		Clear(target.SpreadsheetID, fmt.Sprintf("'%s'!A:Z", target.SheetTitle), &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	return err
}

func (w *Writer) writeBatch(ctx context.Context, target *Target, start int, batch [][]any) error {
	_, err := w.service.Spreadsheets.Values.
		Update(target.SpreadsheetID, fmt.Sprintf("'%s'!A%d", target.SheetTitle, start+1), &sheets.ValueRange{Values: batch}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	return err
}

func (w *Writer) rows(analyses []model.Analysis, summary *service.AnalysisSummary) [][]any {
	values := make([][]any, 0, len(analyses)+10)
	values = append(values, Header)

	for _, a := range analyses {
		trueLabel := any("")
		if a.TrueLabel != nil {
			trueLabel = *a.TrueLabel
		}
		values = append(values, []any{
			a.AnalyzedAt.In(w.location).Format("2006-01-02 15:04:05"),
			a.Source,
			a.Row,
			a.Probability,
			string(a.Decision.Label),
			a.Decision.Confidence,
			trueLabel,
			a.AbnormalThreshold,
			a.UncertainMargin,
			a.ID,
		})
	}

	if summary == nil {
		return values
	}

	values = append(values,
		[]any{},
		[]any{"Summary"},
		[]any{"Total", summary.Total},
	)
	for _, label := range []model.DecisionLabel{model.LabelAbnormal, model.LabelUncertain, model.LabelNormal} {
		values = append(values, []any{string(label), summary.ByLabel[label]})
	}
	values = append(values, []any{"Mean P(abnormal)", summary.MeanProbability})
	if accuracy, ok := summary.Accuracy(); ok {
		values = append(values, []any{"Agreement with labels", accuracy})
	}
	return values
}

func (w *Writer) applyFormatting(ctx context.Context, target *Target, dataRows int) error {
	sheetID := target.SheetID
	dataEnd := int64(dataRows + 1)

	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{SheetId: sheetID, StartRowIndex: 0, EndRowIndex: 1},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{TextFormat: &sheets.TextFormat{Bold: true}},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    1,
					EndRowIndex:      dataEnd,
					StartColumnIndex: 3,
					EndColumnIndex:   6,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						NumberFormat: &sheets.NumberFormat{Type: "NUMBER", Pattern: "0.000"},
					},
				},
				Fields: "userEnteredFormat.numberFormat",
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId:        sheetID,
					GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	}

	// TODO: delete the rules added by earlier exports before adding these.
	for _, label := range []model.DecisionLabel{model.LabelAbnormal, model.LabelUncertain, model.LabelNormal} {
		requests = append(requests, &sheets.Request{
			AddConditionalFormatRule: &sheets.AddConditionalFormatRuleRequest{
				Rule: &sheets.ConditionalFormatRule{
					Ranges: []*sheets.GridRange{{
						SheetId:          sheetID,
						StartRowIndex:    1,
						EndRowIndex:      dataEnd,
						StartColumnIndex: decisionColumn,
						EndColumnIndex:   decisionColumn + 1,
					}},
					BooleanRule: &sheets.BooleanRule{
						Condition: &sheets.BooleanCondition{
							Type:   "TEXT_EQ",
							Values: []*sheets.ConditionValue{{UserEnteredValue: string(label)}},
						},
						Format: &sheets.CellFormat{BackgroundColor: decisionColors[label]},
					},
				},
			},
		})
	}

	requests = append(requests, &sheets.Request{
		AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
			Dimensions: &sheets.DimensionRange{
				SheetId:    sheetID,
				Dimension:  "COLUMNS",
				StartIndex: 0,
				EndIndex:   int64(len(Header)),
			},
		},
	})

	_, err := w.service.Spreadsheets.BatchUpdate(target.SpreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}
