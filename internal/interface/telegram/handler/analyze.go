package handler

import (
	"context"
	"errors"

	"github.com/mentor-hub/code-mentor-bot/internal/application/analysis"
	"github.com/mentor-hub/code-mentor-bot/internal/domain/history"
	"github.com/mentor-hub/code-mentor-bot/internal/domain/shared"
	"github.com/mentor-hub/code-mentor-bot/internal/domain/tutor"
	"github.com/mentor-hub/code-mentor-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════
// ANALYSIS HANDLER
// Handles the free-form inputs: text messages, photos and documents, plus
// /context. Every failure mode maps to a fixed Spanish reply; the pipeline
// already logged the cause.
// ══════════════════════════════════════════════════════════════════════════

// AnalysisPipeline is the slice of the analysis pipeline the handler needs.
type AnalysisPipeline interface {
	AnalyzeText(ctx context.Context, user tutor.UserID, text string) (*analysis.Result, error)
	AnalyzePhoto(ctx context.Context, user tutor.UserID, fileID string) (*analysis.Result, error)
	AnalyzeDocument(ctx context.Context, user tutor.UserID, fileID, mimeType string, declaredSize int64) (*analysis.Result, error)
	AllowedMIMEList() string
}

// AnalysisHandler handles code analysis inputs.
type AnalysisHandler struct {
	pipeline AnalysisPipeline
	history  *history.Ring

	photoLimitMB    int64
	documentLimitMB int64
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(pipeline AnalysisPipeline, ring *history.Ring, photoLimitMB, documentLimitMB int64) *AnalysisHandler {
	return &AnalysisHandler{
		pipeline:        pipeline,
		history:         ring,
		photoLimitMB:    photoLimitMB,
		documentLimitMB: documentLimitMB,
	}
}

// Text analyzes a plain text message.
func (h *AnalysisHandler) Text(ctx context.Context, user tutor.UserID, text string) (*Response, error) {
	res, err := h.pipeline.AnalyzeText(ctx, user, text)
	if err != nil {
		if errors.Is(err, analysis.ErrNothingExtracted) {
			return TextResponse(presenter.MsgEmptyText), nil
		}
		return TextResponse(presenter.MsgAnalysisError), err
	}

	return TextResponse(res.Advice), nil
}

// Photo downloads and OCRs a photo, then analyzes the recognized text.
func (h *AnalysisHandler) Photo(ctx context.Context, user tutor.UserID, fileID string) (*Response, error) {
	res, err := h.pipeline.AnalyzePhoto(ctx, user, fileID)
	if err != nil {
		switch {
		case errors.Is(err, analysis.ErrNothingExtracted):
			return TextResponse(presenter.MsgPhotoNoText), nil
		case errors.Is(err, shared.ErrSizeExceeded), errors.Is(err, shared.ErrFetchExhausted):
			return TextResponse(presenter.PhotoTooLarge(h.photoLimitMB)), nil
		}
		return TextResponse(presenter.MsgPhotoError), err
	}

	return TextResponse(res.Advice), nil
}

// Document validates, downloads and analyzes a document.
func (h *AnalysisHandler) Document(ctx context.Context, user tutor.UserID, fileID, mimeType string, declaredSize int64) (*Response, error) {
	res, err := h.pipeline.AnalyzeDocument(ctx, user, fileID, mimeType, declaredSize)
	if err != nil {
		var rejected *analysis.MIMERejectedError
		switch {
		case errors.As(err, &rejected):
			return TextResponse(presenter.DocumentTypeRejected(
				rejected.MIME, h.pipeline.AllowedMIMEList(), rejected.SizeMB)), nil
		case errors.Is(err, analysis.ErrEmptyDocument):
			return TextResponse(presenter.MsgDocumentEmpty), nil
		case errors.Is(err, shared.ErrSizeExceeded), errors.Is(err, shared.ErrFetchExhausted):
			return TextResponse(presenter.DocumentTooLarge(h.documentLimitMB)), nil
		}
		return TextResponse(presenter.MsgDocumentError), err
	}

	return TextResponse(res.Advice), nil
}

// Context processes "/context": the user's recent inputs, oldest first.
func (h *AnalysisHandler) Context(ctx context.Context, user tutor.UserID) (*Response, error) {
	return TextResponse(h.history.Render(user)), nil
}
