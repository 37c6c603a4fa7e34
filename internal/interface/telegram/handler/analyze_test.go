package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentor-hub/code-mentor-bot/internal/application/analysis"
	"github.com/mentor-hub/code-mentor-bot/internal/domain/history"
	"github.com/mentor-hub/code-mentor-bot/internal/domain/shared"
	"github.com/mentor-hub/code-mentor-bot/internal/domain/tutor"
	"github.com/mentor-hub/code-mentor-bot/internal/interface/telegram/presenter"
)

type stubPipeline struct {
	result *analysis.Result
	err    error
}

func (s *stubPipeline) AnalyzeText(ctx context.Context, user tutor.UserID, text string) (*analysis.Result, error) {
	return s.result, s.err
}

func (s *stubPipeline) AnalyzePhoto(ctx context.Context, user tutor.UserID, fileID string) (*analysis.Result, error) {
	return s.result, s.err
}

func (s *stubPipeline) AnalyzeDocument(ctx context.Context, user tutor.UserID, fileID, mimeType string, declaredSize int64) (*analysis.Result, error) {
	return s.result, s.err
}

func (s *stubPipeline) AllowedMIMEList() string { return "text/plain, application/pdf" }

func newAnalysisHandler(pipeline AnalysisPipeline) *AnalysisHandler {
	return NewAnalysisHandler(pipeline, history.NewRing(5, 500), 256, 256)
}

func TestAnalysisHandler_TextSuccess(t *testing.T) {
	h := newAnalysisHandler(&stubPipeline{result: &analysis.Result{Advice: "Te falta un paréntesis."}})

	resp, err := h.Text(context.Background(), 1, "print('hola'")
	require.NoError(t, err)
	assert.Equal(t, "Te falta un paréntesis.", resp.Text)
}

func TestAnalysisHandler_TextEmpty(t *testing.T) {
	h := newAnalysisHandler(&stubPipeline{err: analysis.ErrNothingExtracted})

	resp, err := h.Text(context.Background(), 1, "   ")
	require.NoError(t, err)
	assert.Equal(t, presenter.MsgEmptyText, resp.Text)
}

func TestAnalysisHandler_PhotoFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"no text extracted", analysis.ErrNothingExtracted, presenter.MsgPhotoNoText},
		{"too large", shared.ErrSizeExceeded, presenter.PhotoTooLarge(256)},
		{"download exhausted", shared.ErrFetchExhausted, presenter.PhotoTooLarge(256)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newAnalysisHandler(&stubPipeline{err: tt.err})
			resp, err := h.Photo(context.Background(), 1, "photo-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Text)
		})
	}
}

func TestAnalysisHandler_PhotoUnexpectedError(t *testing.T) {
	boom := errors.New("boom")
	h := newAnalysisHandler(&stubPipeline{err: boom})

	resp, err := h.Photo(context.Background(), 1, "photo-1")
	assert.ErrorIs(t, err, boom, "unexpected errors surface for logging")
	assert.Equal(t, presenter.MsgPhotoError, resp.Text, "but the user still gets a reply")
}

func TestAnalysisHandler_DocumentRejectedMIME(t *testing.T) {
	h := newAnalysisHandler(&stubPipeline{
		err: &analysis.MIMERejectedError{MIME: "application/zip", SizeMB: 1.5},
	})

	resp, err := h.Document(context.Background(), 1, "doc-1", "application/zip", 1024)
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "application/zip")
	assert.Contains(t, resp.Text, "text/plain, application/pdf")
	assert.Contains(t, resp.Text, "1.50 MB")
}

func TestAnalysisHandler_DocumentEmpty(t *testing.T) {
	h := newAnalysisHandler(&stubPipeline{err: analysis.ErrEmptyDocument})

	resp, err := h.Document(context.Background(), 1, "doc-1", "text/plain", 0)
	require.NoError(t, err)
	assert.Equal(t, presenter.MsgDocumentEmpty, resp.Text)
}

func TestAnalysisHandler_Context(t *testing.T) {
	ring := history.NewRing(5, 500)
	h := NewAnalysisHandler(&stubPipeline{}, ring, 256, 256)
	ctx := context.Background()

	resp, err := h.Context(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, history.NoHistory, resp.Text)

	ring.Append(1, "texto", "print('hola')")
	resp, err = h.Context(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "1. (texto) print('hola')", resp.Text)
}
