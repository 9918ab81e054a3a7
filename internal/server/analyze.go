package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/statuscert/constants"
	"github.com/joseph-ayodele/statuscert/internal/common"
	"github.com/joseph-ayodele/statuscert/internal/entity"
	"github.com/joseph-ayodele/statuscert/internal/ocr"
)

const (
	msgUnreadable  = "Could not read the document. Please upload a clear PDF or image of the status certificate."
	msgUnsupported = "Unsupported file type. Please upload a PDF, PNG, JPEG, TIFF or text file."
	msgFailed      = "Analysis failed. Please try again."
)

type analyzeRequest struct {
	File       string `json:"file"`
	FileName   string `json:"fileName"`
	MediaType  string `json:"mediaType"`
	PropertyID string `json:"propertyId"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type analyzeResponse struct {
	Success  bool                     `json:"success"`
	ReportID string                   `json:"reportId"`
	Analysis *entity.ExtractionResult `json:"analysis,omitempty"`
	Error    *apiError                `json:"error,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	reportID := uuid.NewString()
	ctx := common.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
	logger := common.LoggerFrom(ctx, s.logger).With("report_id", reportID)

	// base64 inflates by 4/3; leave room for the JSON envelope.
	limit := s.cfg.MaxUploadBytes()*4/3 + 64*1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, reportID, http.StatusBadRequest, common.CodeInvalidInput,
				fmt.Sprintf("File exceeds the %d MB upload limit.", s.cfg.MaxUploadMB))
			return
		}
		s.fail(w, reportID, http.StatusBadRequest, common.CodeInvalidInput, "Request body must be a JSON object.")
		return
	}

	doc, err := s.documentFrom(req)
	if err != nil {
		logger.Warn("server.analyze.invalid", "error", err)
		s.fail(w, reportID, http.StatusBadRequest, common.CodeInvalidInput, common.UserMessage(err, "Invalid request."))
		return
	}

	ctx = common.WithPropertyRef(ctx, doc.PropertyRef)
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	logger.Info("server.analyze.start", "file", doc.Name, "media_type", doc.MediaType, "bytes", len(doc.Data))
	result, err := s.analyzer.Analyze(ctx, doc)
	if err != nil {
		status, code, msg := mapError(err)
		logger.Error("server.analyze.failed", "status", status, "code", code, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		s.fail(w, reportID, status, code, msg)
		return
	}

	logger.Info("server.analyze.ok",
		"risk_rating", result.RiskRating,
		"degraded", result.Degraded(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	writeJSON(w, http.StatusOK, analyzeResponse{Success: true, ReportID: reportID, Analysis: &result})
}

// documentFrom validates the request and decodes the uploaded file.
func (s *Server) documentFrom(req analyzeRequest) (entity.Document, error) {
	v := common.NewValidator()
	v.Field("file", req.File, common.Required)
	if err := v.Err(); err != nil {
		return entity.Document{}, err
	}

	payload := req.File
	declared := req.MediaType
	// Accept data URLs as produced by browser FileReader.
	if rest, ok := strings.CutPrefix(payload, "data:"); ok {
		if meta, body, found := strings.Cut(rest, ","); found {
			payload = body
			if declared == "" {
				declared, _, _ = strings.Cut(meta, ";")
			}
		}
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	v.Check(err == nil, "file", "must be base64 encoded")
	v.Field("file", data, common.MaxBytes(int(s.cfg.MaxUploadBytes())))
	if err := v.Err(); err != nil {
		return entity.Document{}, err
	}
	v.Field("file", data, common.Required)
	if err := v.Err(); err != nil {
		return entity.Document{}, err
	}

	if declared == "" && req.FileName != "" {
		declared = constants.MediaTypeForExt(filepath.Ext(req.FileName))
	}
	return entity.Document{
		Name:        req.FileName,
		MediaType:   constants.DetectMediaType(declared, data),
		PropertyRef: strings.TrimSpace(req.PropertyID),
		Data:        data,
	}, nil
}

// mapError turns an analysis failure into an HTTP status and a user-safe error.
func mapError(err error) (int, string, string) {
	var ee *ocr.ExtractionError
	if errors.As(err, &ee) {
		if errors.Is(err, ocr.ErrUnsupportedMedia) {
			return http.StatusBadRequest, common.CodeInvalidInput, msgUnsupported
		}
		return http.StatusBadRequest, common.CodeUnreadable, msgUnreadable
	}
	switch code := common.CodeOf(err); code {
	case common.CodeRateLimit:
		return http.StatusTooManyRequests, code, common.UserMessage(err, msgFailed)
	case common.CodeInvalidInput:
		return http.StatusBadRequest, code, common.UserMessage(err, msgFailed)
	case "":
		return http.StatusInternalServerError, common.CodeAnalysisFailed, msgFailed
	default:
		return http.StatusInternalServerError, code, common.UserMessage(err, msgFailed)
	}
}

func (s *Server) fail(w http.ResponseWriter, reportID string, status int, code, msg string) {
	writeJSON(w, status, analyzeResponse{
		ReportID: reportID,
		Error:    &apiError{Code: code, Message: msg},
	})
}
