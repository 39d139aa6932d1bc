package services

import (
	"bytes"
	"context"
	"log/slog"

	"petrodash/internal/dataprocessing"
	apierrors "petrodash/internal/errors"
	"petrodash/internal/validation"
)

// IngestKinds are the document types the upstream can convert
var IngestKinds = []string{"nominations", "inventories", "transit"}

// IngestSummary describes a converted document
type IngestSummary struct {
	Kind        string                        `json:"kind"`
	Filename    string                        `json:"filename"`
	ContentType string                        `json:"content_type"`
	Size        int                           `json:"size"`
	Sheets      []dataprocessing.SheetSummary `json:"sheets,omitempty"`
	Data        []byte                        `json:"-"`
}

// IngestService forwards uploaded PDFs to the upstream converter
type IngestService struct {
	ingester  DocumentIngester
	validate  *validation.Validator
	files     *validation.FileValidator
	maxUpload int64
	logger    *slog.Logger
}

// NewIngestService creates an ingest service; a nil ingester disables ingest
func NewIngestService(ingester DocumentIngester, maxUpload int64, logger *slog.Logger) *IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("service", "ingest"))
	return &IngestService{
		ingester:  ingester,
		validate:  validation.New(),
		files:     validation.NewFileValidator(logger),
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// Ingest validates and forwards a PDF. The converted spreadsheet is returned
// unchanged; when it is a readable workbook its sheets are summarized too.
func (s *IngestService) Ingest(ctx context.Context, kind, filename string, document []byte) (*IngestSummary, error) {
	if s.ingester == nil {
		return nil, ErrIngestUnavailable
	}
	if err := s.validate.Var("kind", kind, "required,oneof=nominations inventories transit"); err != nil {
		return nil, err
	}
	if err := s.validate.Var("filename", filename, "required,filename"); err != nil {
		return nil, err
	}
	if err := s.files.ValidatePDFUpload(filename, document, int64(len(document)), s.maxUpload); err != nil {
		return nil, apierrors.InvalidRequestWithError(err)
	}

	result, err := s.ingester.Ingest(ctx, kind, filename, bytes.NewReader(document))
	if err != nil {
		return nil, err
	}

	summary := &IngestSummary{
		Kind:        kind,
		Filename:    result.Filename,
		ContentType: result.ContentType,
		Size:        len(result.Data),
		Data:        result.Data,
	}
	sheets, err := dataprocessing.Summarize(result.Data)
	if err != nil {
		s.logger.WarnContext(ctx, "converted document is not a readable workbook",
			slog.String("filename", result.Filename),
			slog.String("error", err.Error()))
	} else {
		summary.Sheets = sheets
	}
	return summary, nil
}
