package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTML_AllTermsPresent(t *testing.T) {
	html := `<div>You are currently logged on.</div>
	<p>DS Logon Account Level: Premium</p>`

	err := HTML(html, nil)
	assert.NoError(t, err)
}

func TestHTML_EmptyInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty string", input: ""},
		{name: "whitespace only", input: "   \n\t"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := HTML(tt.input, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "no HTML")
		})
	}
}

func TestHTML_MissingTermNamedInError(t *testing.T) {
	// Contains every default term except "Premium"
	html := `<p>currently logged on</p><p>DS Logon Account Level</p>`

	err := HTML(html, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"Premium"`)
}

func TestHTML_FirstMissingTermReported(t *testing.T) {
	err := HTML("<html><body>nothing relevant</body></html>", []string{"alpha", "beta"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"alpha"`)
	assert.NotContains(t, err.Error(), `"beta"`)
}

func TestHTML_CaseSensitive(t *testing.T) {
	err := HTML("<p>premium</p>", []string{"Premium"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"Premium"`)
}

func TestHTML_CustomTerms(t *testing.T) {
	err := HTML("<p>welcome back, account holder</p>", []string{"welcome back", "account holder"})
	assert.NoError(t, err)
}
