package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flatbundle/flatbundle/internal/logger"
)

func TestSourceLineColumnResolvesOffset(t *testing.T) {
	src := &logger.Source{Contents: "let a = 1;\nlet b = 2;\n"}

	line, col, text := src.LineColumn(logger.Loc{Start: 15})
	assert.Equal(t, 2, line)
	assert.Equal(t, 4, col)
	assert.Equal(t, "let b = 2;", text)
}

func TestAddErrorRecordsLocationAndMarksHasErrors(t *testing.T) {
	log := logger.NewLog()
	src := &logger.Source{ID: "a.js", PrettyPath: "a.js", Contents: "let x = 1;\n"}

	log.AddError(src, logger.Loc{Start: 4}, "duplicate import binding \"x\"")

	require.True(t, log.HasErrors())
	msgs := log.Msgs()
	require.Len(t, msgs, 1)
	assert.Equal(t, logger.Error, msgs[0].Kind)
	require.NotNil(t, msgs[0].Location)
	assert.Equal(t, "a.js", msgs[0].Location.File)
	assert.Equal(t, 1, msgs[0].Location.Line)
}

func TestAddWarningWithoutSourceHasNoLocation(t *testing.T) {
	log := logger.NewLog()
	log.AddWarning(nil, logger.Loc{}, "assuming \"console\" is a pre-existing global")

	msgs := log.Msgs()
	require.Len(t, msgs, 1)
	assert.Equal(t, logger.Warning, msgs[0].Kind)
	assert.Nil(t, msgs[0].Location)
}

func TestAddInfoHasNoLocation(t *testing.T) {
	log := logger.NewLog()
	log.AddInfo("fetched entry.js")

	msgs := log.Msgs()
	require.Len(t, msgs, 1)
	assert.Equal(t, logger.Info, msgs[0].Kind)
	assert.Equal(t, "fetched entry.js", msgs[0].Text)
}

func TestHasErrorsFalseWithOnlyWarningsAndInfo(t *testing.T) {
	log := logger.NewLog()
	log.AddWarning(nil, logger.Loc{}, "w")
	log.AddInfo("i")

	assert.False(t, log.HasErrors())
}

func TestDoneSortsByFileThenLine(t *testing.T) {
	log := logger.NewLog()
	b := &logger.Source{ID: "b.js", PrettyPath: "b.js", Contents: "x\ny\nz\n"}
	a := &logger.Source{ID: "a.js", PrettyPath: "a.js", Contents: "x\ny\nz\n"}

	log.AddError(b, logger.Loc{Start: 2}, "in b")
	log.AddError(a, logger.Loc{Start: 4}, "in a, line 3")
	log.AddError(a, logger.Loc{Start: 0}, "in a, line 1")
	log.AddInfo("no location")

	done := log.Done()
	require.Len(t, done, 4)
	// A message with no Location (like a bare info log) sorts ahead of any
	// file-attributed one; among file-attributed messages, file then line.
	assert.Equal(t, "no location", done[0].Text)
	assert.Equal(t, "in a, line 1", done[1].Text)
	assert.Equal(t, "in a, line 3", done[2].Text)
	assert.Equal(t, "in b", done[3].Text)
}

func TestMsgStringFormatsLocationAndLineText(t *testing.T) {
	msg := logger.Msg{
		Kind: logger.Error,
		Text: "boom",
		Location: &logger.MsgLocation{
			File: "a.js", Line: 3, Column: 5, LineText: "let x = 1;",
		},
	}
	s := msg.String()
	assert.Contains(t, s, "a.js:3:5:")
	assert.Contains(t, s, "error: boom")
	assert.Contains(t, s, "let x = 1;")
}
