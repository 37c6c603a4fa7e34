package catalog

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentor-hub/code-mentor-bot/internal/domain/tutor"
)

func TestLoad_EmbeddedCurriculum(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)

	langs := cat.Languages()
	assert.Contains(t, langs, tutor.Language("python"))
	assert.Contains(t, langs, tutor.Language("javascript"))
	assert.Contains(t, langs, tutor.Language("go"))
	assert.Contains(t, langs, tutor.Language("sec_pentesting"))
	assert.Contains(t, langs, tutor.Language("linux_redhat"))

	track, ok := cat.Lookup("python", 0)
	require.True(t, ok)
	assert.Equal(t, 4, track.ModuleCount())
	assert.Equal(t, 3, track.QuizCount())
	assert.Len(t, track.Errors, 3)

	mod, ok := track.ModuleAt(0)
	require.True(t, ok)
	assert.Equal(t, "Variables y tipos", mod.Title)

	q, ok := track.QuestionAt(0)
	require.True(t, ok)
	assert.Equal(t, 1, q.Answer)
	assert.Len(t, q.Options, 3)
}

func TestLoad_EveryQuizAnswerInRange(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)

	for _, lang := range cat.Languages() {
		for _, lvl := range cat.Levels(lang) {
			track, ok := cat.Lookup(lang, lvl)
			require.True(t, ok)
			for i, q := range track.Quiz {
				assert.GreaterOrEqual(t, q.Answer, 0, "%s/%d quiz %d", lang, lvl, i)
				assert.Less(t, q.Answer, len(q.Options), "%s/%d quiz %d", lang, lvl, i)
			}
		}
	}
}

func TestLoadFrom_RejectsBadContent(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{
			name: "missing language",
			yaml: "levels:\n  0:\n    modules:\n      - title: x\n",
		},
		{
			name: "no levels",
			yaml: "language: rust\n",
		},
		{
			name: "no modules",
			yaml: "language: rust\nlevels:\n  0:\n    modules: []\n",
		},
		{
			name: "answer out of range",
			yaml: "language: rust\nlevels:\n  0:\n    modules:\n      - title: x\n    quiz:\n      - question: q\n        options: [a, b]\n        answer: 5\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fsys := fstest.MapFS{
				"curriculum/rust.yaml": &fstest.MapFile{Data: []byte(tc.yaml)},
			}
			_, err := loadFrom(fsys)
			assert.Error(t, err)
		})
	}
}

func TestLoadFrom_RejectsDuplicateLanguage(t *testing.T) {
	content := "language: rust\nlevels:\n  0:\n    modules:\n      - title: x\n"
	fsys := fstest.MapFS{
		"curriculum/a.yaml": &fstest.MapFile{Data: []byte(content)},
		"curriculum/b.yaml": &fstest.MapFile{Data: []byte(content)},
	}
	_, err := loadFrom(fsys)
	assert.ErrorContains(t, err, "duplicate language")
}
