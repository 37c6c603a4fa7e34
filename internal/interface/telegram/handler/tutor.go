package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/mentor-hub/code-mentor-bot/internal/application/tutoring"
	"github.com/mentor-hub/code-mentor-bot/internal/domain/shared"
	"github.com/mentor-hub/code-mentor-bot/internal/domain/tutor"
	"github.com/mentor-hub/code-mentor-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════
// TUTOR HANDLER
// Handles /learn, /next, /modules, /quiz, /answer, /progress, /reset and
// /errors. All tutoring state lives in the tutoring service; this layer only
// parses arguments and renders results.
// ══════════════════════════════════════════════════════════════════════════

// TutorHandler handles the tutor commands.
type TutorHandler struct {
	service   *tutoring.Service
	present   *presenter.TutorPresenter
	keyboards *presenter.KeyboardBuilder
}

// NewTutorHandler creates a new TutorHandler.
func NewTutorHandler(service *tutoring.Service, present *presenter.TutorPresenter, keyboards *presenter.KeyboardBuilder) *TutorHandler {
	return &TutorHandler{service: service, present: present, keyboards: keyboards}
}

// Learn processes "/learn <lenguaje> <nivel>".
func (h *TutorHandler) Learn(ctx context.Context, user tutor.UserID, args string) (*Response, error) {
	usage := h.present.LearnUsage(h.service.Catalog().LanguageList())

	fields := strings.Fields(strings.ToLower(args))
	if len(fields) != 2 {
		return TextResponse(usage), nil
	}

	level, err := strconv.Atoi(fields[1])
	if err != nil {
		return TextResponse(usage), nil
	}

	lang := tutor.Language(fields[0])
	if err := h.service.Begin(ctx, user, lang, tutor.Level(level)); err != nil {
		if errors.Is(err, shared.ErrInvalidSelection) {
			return TextResponse(usage), nil
		}
		return nil, err
	}

	return TextResponse(h.present.TutorConfigured(lang, tutor.Level(level))), nil
}

// Next processes "/next": delivers the current module and moves the cursor.
func (h *TutorHandler) Next(ctx context.Context, user tutor.UserID) (*Response, error) {
	res, err := h.service.Advance(ctx, user)
	if err != nil {
		if errors.Is(err, shared.ErrNoActiveSession) {
			return TextResponse(presenter.MsgNeedLearnFirst), nil
		}
		return nil, err
	}

	if res.Exhausted {
		return TextResponse(presenter.MsgModulesExhausted), nil
	}

	return TextResponse(h.present.Module(res)), nil
}

// Modules processes "/modules": lists the level's modules with done markers.
func (h *TutorHandler) Modules(ctx context.Context, user tutor.UserID) (*Response, error) {
	sess, ok := h.service.Session(user)
	if !ok {
		return TextResponse(presenter.MsgNeedLearnFirst), nil
	}

	track, ok := h.service.Catalog().Lookup(sess.Language, sess.Level)
	if !ok {
		return TextResponse(presenter.MsgNeedLearnFirst), nil
	}

	return TextResponse(h.present.ModuleList(sess.Language, sess.Level, track, sess.ModuleCursor)), nil
}

// Quiz processes "/quiz": restarts the level's quiz at the first question.
func (h *TutorHandler) Quiz(ctx context.Context, user tutor.UserID) (*Response, error) {
	start, err := h.service.StartQuiz(ctx, user)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrNoActiveSession):
			return TextResponse(presenter.MsgNeedLearnFirst), nil
		case errors.Is(err, shared.ErrNoQuizAvailable):
			return TextResponse(presenter.MsgNoQuizDefined), nil
		}
		return nil, err
	}

	return &Response{
		Text:     h.present.Question(start.Question, start.Index, start.Total),
		Keyboard: h.keyboards.QuizAnswerKeyboard(len(start.Question.Options)),
	}, nil
}

// Answer processes "/answer <número>". Users answer 1-based; the service
// grades 0-based.
func (h *TutorHandler) Answer(ctx context.Context, user tutor.UserID, args string) (*Response, error) {
	choice, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		return TextResponse(presenter.MsgAnswerUsage), nil
	}

	res, err := h.service.SubmitAnswer(ctx, user, choice-1)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrNoActiveSession):
			return TextResponse(presenter.MsgNeedLearnFirst), nil
		case errors.Is(err, shared.ErrNoActiveQuiz):
			return TextResponse(presenter.MsgNoActiveQuiz), nil
		}
		return nil, err
	}

	resp := TextResponse(h.present.Answer(res))
	if res.Next != nil {
		resp.Keyboard = h.keyboards.QuizAnswerKeyboard(len(res.Next.Options))
	}
	return resp, nil
}

// Progress processes "/progress".
func (h *TutorHandler) Progress(ctx context.Context, user tutor.UserID) (*Response, error) {
	report, err := h.service.Progress(user)
	if err != nil {
		if errors.Is(err, shared.ErrNoActiveSession) {
			return TextResponse(presenter.MsgNeedLearnFirst), nil
		}
		return nil, err
	}

	return TextResponse(h.present.Progress(report)), nil
}

// Reset processes "/reset": discards the user's session.
func (h *TutorHandler) Reset(ctx context.Context, user tutor.UserID) (*Response, error) {
	if err := h.service.Reset(ctx, user); err != nil {
		if errors.Is(err, shared.ErrNoActiveSession) {
			return TextResponse(presenter.MsgNeedLearnFirst), nil
		}
		return nil, err
	}

	return TextResponse(presenter.MsgSessionReset), nil
}

// Errors processes "/errors": the level's common-error catalog.
func (h *TutorHandler) Errors(ctx context.Context, user tutor.UserID) (*Response, error) {
	sess, ok := h.service.Session(user)
	if !ok {
		return TextResponse(presenter.MsgNeedLearnFirst), nil
	}

	track, ok := h.service.Catalog().Lookup(sess.Language, sess.Level)
	if !ok {
		return TextResponse(presenter.MsgNeedLearnFirst), nil
	}

	if len(track.Errors) == 0 {
		return TextResponse("No hay errores comunes registrados para este nivel."), nil
	}

	return TextResponse(h.present.CommonErrors(sess.Language, sess.Level, track.Errors)), nil
}
