package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/kawazanyo/kawazanyo/pkg/projection"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var ErrUnauthenticated = errors.New("user is unauthenticated, authentication is required")
var ErrNoSpreadsheet = errors.New("no spreadsheet configured")

// ValuesWriter writes a block of cells into a spreadsheet.
type ValuesWriter interface {
	UpdateValues(ctx context.Context, spreadsheetId, writeRange string, values [][]any) (updatedCells int64, err error)
}

type ExportRequest struct {
	SpreadsheetId string
	SheetName     string
	ScenarioIds   []string
}

type ExportResult struct {
	SpreadsheetId string
	Range         string
	UpdatedCells  int64
}

type Service interface {
	ExportProjection(ctx context.Context, request ExportRequest) (ExportResult, error)
}

type ServiceImpl struct {
	projections   projection.Service
	writer        ValuesWriter
	spreadsheetId string
	sheetName     string
}

// NewService uses spreadsheetId and sheetName when a request names none.
func NewService(projections projection.Service, writer ValuesWriter, spreadsheetId, sheetName string) *ServiceImpl {
	return &ServiceImpl{
		projections:   projections,
		writer:        writer,
		spreadsheetId: spreadsheetId,
		sheetName:     sheetName,
	}
}

func (s *ServiceImpl) ExportProjection(ctx context.Context, request ExportRequest) (ExportResult, error) {
	spreadsheetId := request.SpreadsheetId
	if spreadsheetId == "" {
		spreadsheetId = s.spreadsheetId
	}
	if spreadsheetId == "" {
		return ExportResult{}, ErrNoSpreadsheet
	}
	sheetName := request.SheetName
	if sheetName == "" {
		sheetName = s.sheetName
	}

	p, err := s.projections.Project(ctx, request.ScenarioIds)
	if err != nil {
		return ExportResult{}, fmt.Errorf("failed to compute projection: %w", err)
	}
	values := projectionValues(p)
	writeRange := "A1"
	if sheetName != "" {
		writeRange = fmt.Sprintf("'%s'!A1", sheetName)
	}

	updated, err := s.writer.UpdateValues(ctx, spreadsheetId, writeRange, values)
	if err != nil {
		return ExportResult{}, err
	}
	log.Infof("Exported %d months of %d scenarios to spreadsheet %s", len(p.Months), len(p.Scenarios), spreadsheetId)
	return ExportResult{SpreadsheetId: spreadsheetId, Range: writeRange, UpdatedCells: updated}, nil
}

func projectionValues(p projection.Projection) [][]any {
	header := make([]any, 0, 2+2*len(p.Scenarios))
	header = append(header, "Month", "Index")
	for _, ref := range p.Scenarios {
		header = append(header, ref.Name+" balance", ref.Name+" asset")
	}
	values := make([][]any, 0, 1+len(p.Months))
	values = append(values, header)
	for _, month := range p.Months {
		row := make([]any, 0, len(header))
		row = append(row, month.Label, month.Index)
		for _, result := range month.Results {
			row = append(row, result.Balance, result.Asset)
		}
		values = append(values, row)
	}
	return values
}

// SheetsWriter writes through the Google Sheets API with the stored authorization.
type SheetsWriter struct {
	auth *GoogleAuth
}

func NewSheetsWriter(auth *GoogleAuth) *SheetsWriter {
	return &SheetsWriter{auth: auth}
}

func (w *SheetsWriter) UpdateValues(ctx context.Context, spreadsheetId, writeRange string, values [][]any) (int64, error) {
	service, err := w.prepareSheetsService(ctx)
	if err != nil {
		return 0, err
	}
	response, err := service.Spreadsheets.Values.Update(spreadsheetId, writeRange, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		err := fmt.Errorf("unable to write values to spreadsheet %s: %w", spreadsheetId, err)
		log.Error(err)
		return 0, err
	}
	return response.UpdatedCells, nil
}

func (w *SheetsWriter) prepareSheetsService(ctx context.Context) (*sheets.Service, error) {
	client, err := w.auth.getClient(ctx)
	if err != nil {
		err := fmt.Errorf("unable to retrieve Google auth client: %w", err)
		log.Error(err)
		return nil, err
	}
	if client == nil {
		log.Debug("user is unauthenticated, authentication is required")
		return nil, ErrUnauthenticated
	}
	service, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		err := fmt.Errorf("unable to create Sheets client: %w", err)
		log.Error(err)
		return nil, err
	}
	return service, nil
}
