package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"progman-api/internal/datecalc"
	"progman-api/internal/domain"
	"progman-api/internal/dto"
	"progman-api/internal/importer"
	"progman-api/internal/metrics"
	"progman-api/internal/repository"
	"progman-api/internal/response"
)

// Archiver keeps a copy of every uploaded workbook
type Archiver interface {
	Store(ctx context.Context, key string, body io.Reader, contentType string) error
	Name() string
}

// ImportService defines the interface for spreadsheet uploads
type ImportService interface {
	Import(ctx context.Context, projectID uint, fileName string, data []byte) (*dto.ImportResponse, error)
	ListImports(ctx context.Context, projectID uint, limit int) ([]dto.ImportRecordResponse, error)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var allowedImportExt = map[string]bool{
	".xlsx": true,
	".xlsm": true,
}

type importServiceImpl struct {
	schedules   ScheduleService
	projectRepo repository.ProjectRepository
	importRepo  repository.ImportRepository
	archiver    Archiver
	clock       Clock
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewImportService creates a new instance of ImportService.
// archiver may be nil, in which case uploads are not kept.
func NewImportService(
	schedules ScheduleService,
	projectRepo repository.ProjectRepository,
	importRepo repository.ImportRepository,
	archiver Archiver,
	clock Clock,
	m *metrics.Metrics,
	logger *zap.Logger,
) ImportService {
	if clock == nil {
		clock = systemClock
	}
	return &importServiceImpl{
		schedules:   schedules,
		projectRepo: projectRepo,
		importRepo:  importRepo,
		archiver:    archiver,
		clock:       clock,
		metrics:     m,
		logger:      logger,
	}
}

// Import parses the workbook and replaces the project's schedule with its rows
func (s *importServiceImpl) Import(ctx context.Context, projectID uint, fileName string, data []byte) (*dto.ImportResponse, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if !allowedImportExt[ext] {
		return nil, response.NewValidationError("Only .xlsx and .xlsm workbooks are accepted", fileName)
	}

	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, notFoundOrInternal(err, "Project not found", "Failed to fetch project")
	}

	result, err := importer.Parse(bytes.NewReader(data), importer.Options{BaseYear: s.baseYear(project)})
	if err != nil {
		if errors.Is(err, importer.ErrNoHeader) {
			return nil, response.NewValidationError("No schedule header found in workbook", err.Error())
		}
		return nil, response.NewValidationError("Failed to read workbook", err.Error())
	}

	objectKey := s.archive(ctx, projectID, ext, data)

	imported, err := s.schedules.ImportFromSpreadsheet(ctx, projectID, result.Rows)
	if err != nil {
		return nil, err
	}

	columns, err := json.Marshal(result.Columns)
	if err != nil {
		return nil, internalError("Failed to encode column mapping", err)
	}
	record := &domain.ScheduleImport{
		ProjectID: projectID,
		FileName:  fileName,
		ObjectKey: objectKey,
		Sheet:     result.Sheet,
		Imported:  imported,
		Columns:   datatypes.JSON(columns),
	}
	if err := s.importRepo.Create(ctx, record); err != nil {
		s.logger.Warn("Failed to record schedule import",
			zap.Uint("project_id", projectID),
			zap.Error(err),
		)
	}

	return &dto.ImportResponse{
		ProjectID:    projectID,
		FileName:     fileName,
		ObjectKey:    objectKey,
		Sheet:        result.Sheet,
		Columns:      result.Columns,
		Imported:     imported,
		UpdatedCount: imported,
	}, nil
}

func (s *importServiceImpl) baseYear(project *domain.Project) int {
	if project.BaseDate != nil {
		if t, err := datecalc.Parse(*project.BaseDate); err == nil {
			return t.Year()
		}
	}
	return s.clock().Year()
}

// archive stores the upload and returns its key, or "" when it was not kept
func (s *importServiceImpl) archive(ctx context.Context, projectID uint, ext string, data []byte) string {
	if s.archiver == nil {
		return ""
	}
	now := s.clock().UTC()
	key := fmt.Sprintf("imports/%d/%s/%s%s", projectID, now.Format("2006/01"), uuid.New().String(), ext)

	start := time.Now()
	err := s.archiver.Store(ctx, key, bytes.NewReader(data), xlsxContentType)
	if s.metrics != nil {
		s.metrics.RecordExternalCall(s.archiver.Name(), "store", time.Since(start), err)
	}
	if err != nil {
		s.logger.Warn("Failed to archive upload",
			zap.Uint("project_id", projectID),
			zap.String("archive", s.archiver.Name()),
			zap.Error(err),
		)
		return ""
	}
	return key
}

func (s *importServiceImpl) ListImports(ctx context.Context, projectID uint, limit int) ([]dto.ImportRecordResponse, error) {
	records, err := s.importRepo.FindByProject(ctx, projectID, limit)
	if err != nil {
		return nil, internalError("Failed to fetch import history", err)
	}

	out := make([]dto.ImportRecordResponse, 0, len(records))
	for _, r := range records {
		item := dto.ImportRecordResponse{
			ID:        r.ID,
			FileName:  r.FileName,
			ObjectKey: r.ObjectKey,
			Sheet:     r.Sheet,
			Imported:  r.Imported,
			CreatedAt: r.CreatedAt,
		}
		if len(r.Columns) > 0 {
			if err := json.Unmarshal(r.Columns, &item.Columns); err != nil {
				s.logger.Warn("Invalid column mapping in import record", zap.Uint("import_id", r.ID), zap.Error(err))
			}
		}
		out = append(out, item)
	}
	return out, nil
}
