package presenter

import (
	"fmt"
	"strings"

	"github.com/mentor-hub/code-mentor-bot/internal/application/tutoring"
	"github.com/mentor-hub/code-mentor-bot/internal/domain/tutor"
)

// ══════════════════════════════════════════════════════════════════════════
// TUTOR PRESENTER
// Renders modules, quizzes, progress and the common-error catalog. All user
// output is Spanish plain text.
// ══════════════════════════════════════════════════════════════════════════

// TutorPresenter renders tutoring results as Telegram messages.
type TutorPresenter struct{}

// NewTutorPresenter creates a new TutorPresenter.
func NewTutorPresenter() *TutorPresenter {
	return &TutorPresenter{}
}

// Module renders one lesson unit: lesson text, example, exercises and tasks.
func (p *TutorPresenter) Module(res *tutoring.AdvanceResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📘 Módulo %d/%d: %s\n\n%s",
		res.Index+1, res.Total, res.Module.Title, res.Module.Lesson)

	if res.Module.Example != "" {
		fmt.Fprintf(&b, "\n\nEjemplo:\n%s", res.Module.Example)
	}
	if len(res.Module.Exercises) > 0 {
		b.WriteString("\n\nEjercicios:")
		for _, ex := range res.Module.Exercises {
			fmt.Fprintf(&b, "\n• %s", ex)
		}
	}
	if len(res.Module.Tasks) > 0 {
		b.WriteString("\n\nTareas:")
		for _, task := range res.Module.Tasks {
			fmt.Fprintf(&b, "\n• %s", task)
		}
	}

	return b.String()
}

// ModuleList renders the level's module titles with a done marker per module.
func (p *TutorPresenter) ModuleList(lang tutor.Language, level tutor.Level, track *tutor.Track, cursor int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Módulos de %s nivel %d:", lang, level)
	for i, mod := range track.Modules {
		marker := "•"
		if i < cursor {
			marker = "✅"
		}
		fmt.Fprintf(&b, "\n%d. %s %s", i+1, marker, mod.Title)
	}
	return b.String()
}

// Question renders a quiz question with 1-based numbered options.
func (p *TutorPresenter) Question(question tutor.QuizQuestion, index, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pregunta %d/%d: %s", index+1, total, question.Question)
	for i, opt := range question.Options {
		fmt.Fprintf(&b, "\n%s) %s", optionLabel(i), opt)
	}
	b.WriteString("\n\nResponde con /answer <número> o toca una opción.")
	return b.String()
}

// Answer renders the grading of one submitted answer, plus the next question
// or the final score when the quiz just finished.
func (p *TutorPresenter) Answer(res *tutoring.AnswerResult) string {
	var b strings.Builder

	if res.Correct {
		b.WriteString("✅ ¡Correcto!")
	} else {
		fmt.Fprintf(&b, "❌ Incorrecto. La respuesta era: %s", res.CorrectOption)
	}

	if res.Done {
		fmt.Fprintf(&b, "\n\nQuiz terminado. Puntaje: %d/%d.", res.Score, res.Total)
		b.WriteString("\nUsa /quiz para repetirlo o /next para seguir con los módulos.")
		return b.String()
	}

	b.WriteString("\n\n")
	b.WriteString(p.Question(*res.Next, res.NextIndex, res.Total))
	return b.String()
}

// Progress renders the user's standing within their track.
func (p *TutorPresenter) Progress(report *tutoring.ProgressReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Progreso %s nivel %d:", report.Language, report.Level)
	fmt.Fprintf(&b, "\n• Módulos: %d/%d", report.ModulesDone, report.ModuleTotal)
	if report.QuizTotal > 0 {
		fmt.Fprintf(&b, "\n• Quiz: %d/%d respondidas, %d correctas",
			report.QuizAnswered, report.QuizTotal, report.Score)
	} else {
		b.WriteString("\n• Quiz: no disponible en este nivel")
	}
	return b.String()
}

// CommonErrors renders the level's common-error catalog.
func (p *TutorPresenter) CommonErrors(lang tutor.Language, level tutor.Level, errs []tutor.CommonError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Errores comunes %s nivel %d:", lang, level)
	for _, ce := range errs {
		fmt.Fprintf(&b, "\n\n⚠️ %s\nCausa: %s\nSolución: %s", ce.Name, ce.Cause, ce.Remedy)
		if ce.Example != "" {
			fmt.Fprintf(&b, "\nEjemplo:\n%s", ce.Example)
		}
	}
	return b.String()
}

// TutorConfigured confirms a /learn selection.
func (p *TutorPresenter) TutorConfigured(lang tutor.Language, level tutor.Level) string {
	return fmt.Sprintf("Tutor configurado: %s nivel %d. Usa /next para iniciar.", lang, level)
}

// LearnUsage renders the /learn usage hint with the supported languages.
func (p *TutorPresenter) LearnUsage(languages string) string {
	return fmt.Sprintf("Uso: /learn <lenguaje> <nivel>\nLenguajes: %s", languages)
}

func optionLabel(i int) string {
	return fmt.Sprintf("%d", i+1)
}

func answerCallback(i int) string {
	return fmt.Sprintf("answer:%d", i+1)
}
