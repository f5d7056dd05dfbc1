package standardize

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/gradcafe-backend/internal/model"
	"github.com/stretchr/testify/require"
)

func TestRules_Standardize(t *testing.T) {
	in := []model.AdmissionResult{
		{Program: "CS, JHU"},
		{Program: "Computer Science, Penn State"},
		{Program: "Statistics, University of California, Berkeley"},
		{Program: "Philosophy"},
	}

	out, err := NewRules(zerolog.Nop()).Standardize(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, len(in))

	require.Equal(t, "Computer Science", *out[0].LLMGeneratedProgram)
	require.Equal(t, "Johns Hopkins University", *out[0].LLMGeneratedUniversity)
	require.Equal(t, "Pennsylvania State University", *out[1].LLMGeneratedUniversity)
	require.Equal(t, "Statistics", *out[2].LLMGeneratedProgram)
	require.Equal(t, "University of California, Berkeley", *out[2].LLMGeneratedUniversity)
	require.Equal(t, "Philosophy", *out[3].LLMGeneratedProgram)
	require.Nil(t, out[3].LLMGeneratedUniversity)

	// input is left untouched
	require.Nil(t, in[0].LLMGeneratedProgram)
}

func TestUniversity_SubstringMatch(t *testing.T) {
	require.Equal(t, "Johns Hopkins University", University("The Johns Hopkins University (Whiting)"))
	require.Equal(t, "Georgetown University", University("Georgetown University Law Center"))
	require.Equal(t, "Unknown College", University("  Unknown College "))
}

func TestRules_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRules(zerolog.Nop()).Standardize(ctx, []model.AdmissionResult{{Program: "CS, MIT"}})
	require.ErrorIs(t, err, context.Canceled)
}
