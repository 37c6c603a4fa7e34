package presenter

import "fmt"

// ══════════════════════════════════════════════════════════════════════════
// FIXED MESSAGES
// The static Spanish strings sent by the bot. Handlers reference these
// instead of embedding literals so the wording lives in one place.
// ══════════════════════════════════════════════════════════════════════════

const (
	// MsgRateLimited is sent when the sliding-window limit rejects a message.
	MsgRateLimited = "Estás enviando muy rápido. Espera unos segundos."

	// MsgNeedLearnFirst is sent when a tutor command arrives without a session.
	MsgNeedLearnFirst = "Primero usa /learn <lenguaje> <nivel>."

	// MsgModulesExhausted is sent when /next walks past the last module.
	MsgModulesExhausted = "No hay más módulos en este nivel. Usa /quiz para repasar o /learn para cambiar."

	// MsgNoQuizDefined is sent when the level has no quiz.
	MsgNoQuizDefined = "No hay quiz definido para este nivel."

	// MsgNoActiveQuiz is sent when /answer arrives with no pending question.
	MsgNoActiveQuiz = "No hay un quiz activo. Usa /quiz para empezar uno."

	// MsgAnswerUsage is sent when /answer has a missing or non-numeric argument.
	MsgAnswerUsage = "Uso: /answer <número de opción>."

	// MsgSessionReset confirms a /reset.
	MsgSessionReset = "Listo, borré tu progreso. Usa /learn para empezar de nuevo."

	// MsgPhotoNoText is sent when OCR produced nothing usable.
	MsgPhotoNoText = "No pude leer texto de la imagen. ¿Puedes reenviar en texto?"

	// MsgDocumentEmpty is sent when a document had no readable content.
	MsgDocumentEmpty = "El archivo está vacío o no pude leerlo."

	// MsgPhotoError and MsgDocumentError cover unexpected media failures.
	MsgPhotoError    = "Ocurrió un error procesando la imagen."
	MsgDocumentError = "Ocurrió un error procesando el documento."

	// MsgAnalysisError covers unexpected text analysis failures.
	MsgAnalysisError = "Ocurrió un error analizando el texto. Intenta de nuevo."

	// MsgEmptyText is sent when a text message is blank after sanitation.
	MsgEmptyText = "No encontré contenido para analizar. Envíame código o un mensaje de error."
)

// PhotoTooLarge renders the photo size rejection.
func PhotoTooLarge(limitMB int64) string {
	return fmt.Sprintf("La foto excede el límite de %d MB o no se pudo descargar.", limitMB)
}

// DocumentTooLarge renders the document size rejection.
func DocumentTooLarge(limitMB int64) string {
	return fmt.Sprintf("El archivo excede el límite de %d MB o no se pudo descargar.", limitMB)
}

// DocumentTypeRejected renders the MIME allow-list rejection.
func DocumentTypeRejected(mime, allowed string, sizeMB float64) string {
	if mime == "" {
		mime = "desconocido"
	}
	return fmt.Sprintf("Tipo de documento no permitido (%s). Permitidos: %s. Tamaño: %.2f MB.",
		mime, allowed, sizeMB)
}

// Welcome renders the /start greeting.
func Welcome(firstName string) string {
	greeting := "¡Hola"
	if firstName != "" {
		greeting += ", " + firstName
	}
	return greeting + "! Soy tu mentor de código.\n\n" +
		"Envíame código, un mensaje de error, una foto o un documento y te ayudo a " +
		"entender qué falla. También puedo guiarte con un tutor por niveles: " +
		"usa /learn <lenguaje> <nivel> para empezar, o /help para ver todo lo que sé hacer."
}

// Help is the /help text: what the bot analyzes plus the command list.
const Help = `Puedo ayudarte de dos maneras:

1) Análisis de código y errores
   • Texto: pega tu código o el error y lo reviso.
   • Fotos: leo el texto de la imagen (OCR) y lo analizo.
   • Documentos: acepto archivos de código y documentos de texto
     (hasta 256 MB, tipos configurables).

2) Tutor por niveles
   Lecciones con ejemplos, ejercicios, tareas y quizzes por lenguaje y nivel.

Comandos:
/learn <lenguaje> <nivel> — configurar el tutor
/next — siguiente módulo
/modules — módulos del nivel
/quiz — iniciar el quiz del nivel
/answer <número> — responder la pregunta actual
/progress — tu progreso
/reset — borrar tu progreso
/errors — errores comunes del nivel
/context — tus últimos envíos
/menu — botones de acceso rápido
/about — sobre este bot`

// About is the /about text.
const About = `Mentor de código para estudiantes.

Analizo código y errores en texto, fotos y documentos, y te acompaño con un ` +
	`tutor por niveles con lecciones, ejercicios y quizzes. Tus envíos recientes ` +
	`se recuerdan para darte contexto; tu progreso del tutor se guarda entre sesiones.`

// MenuTitle heads the /menu keyboard.
const MenuTitle = "¿Qué quieres hacer?"
