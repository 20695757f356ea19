package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/biweekly/internal/period"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPrompter(input string) (*Prompter, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return NewPrompter(NewNonBlockingReader(strings.NewReader(input)), out), out
}

func TestPromptInt(t *testing.T) {
	p, out := newTestPrompter("zero\n0\n32\n15\n")

	n, err := p.PromptInt(context.Background(), "Day", 1, 31)
	require.NoError(t, err)
	assert.Equal(t, 15, n)

	assert.Contains(t, out.String(), "Value must be a number between 1 and 31. Value selected: zero")
	assert.Contains(t, out.String(), "Value selected: 0")
	assert.Contains(t, out.String(), "Value selected: 32")
	assert.Equal(t, 4, strings.Count(out.String(), "Day →"))
}

func TestPromptInt_EndOfInput(t *testing.T) {
	p, _ := newTestPrompter("nope\n")
	_, err := p.PromptInt(context.Background(), "Day", 1, 31)
	require.ErrorIs(t, err, io.EOF)
}

func TestStartDay(t *testing.T) {
	feb := period.Period{Year: 2024, Month: time.February}
	p, out := newTestPrompter("30\n29\n")

	day, err := p.StartDay(context.Background(), feb)
	require.NoError(t, err)
	assert.Equal(t, 29, day)
	assert.Contains(t, out.String(), "No workbook found for 2024 - January")
	assert.Contains(t, out.String(), "Start day of 2024 - February (1-29)")
}

func TestPromptPeriod(t *testing.T) {
	p, _ := newTestPrompter("2024\n13\n3\n")

	got, err := p.PromptPeriod(context.Background())
	require.NoError(t, err)
	assert.Equal(t, period.Period{Year: 2024, Month: time.March}, got)
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "y\n", want: true},
		{input: "YES\n", want: true},
		{input: "n\n", want: false},
		{input: "\n", want: false},
	}
	for _, tt := range tests {
		p, _ := newTestPrompter(tt.input)
		got, err := p.Confirm(context.Background(), "Overwrite?")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.input)
	}
}
