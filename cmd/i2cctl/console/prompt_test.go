package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPromptText(t *testing.T) {
	assert.Equal(t, "write? [N/y]: ", promptText("write?", []string{No, Yes}))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"", No},
		{"y", Yes},
		{" Y ", Yes},
		{"n", No},
		{"maybe", No},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			assert.Equal(t, test.expected, normalize(test.in, []string{No, Yes}))
		})
	}
}
