package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailValid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "user@example.com", "user@example.com"},
		{"surrounding whitespace trimmed", "  user@example.com \n", "user@example.com"},
		{"domain lowercased", "user@EXAMPLE.COM", "user@example.com"},
		{"local part preserved", "User.Name@Example.com", "User.Name@example.com"},
		{"plus addressing", "user+faved@example.com", "user+faved@example.com"},
		{"subdomain", "u@mail.example.co.uk", "u@mail.example.co.uk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Email(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEmailInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"missing at", "userexample.com"},
		{"missing domain", "user@"},
		{"missing local part", "@example.com"},
		{"spaces inside", "user name@example.com"},
		{"double at", "user@@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Email(tt.input)
			require.Error(t, err)
			assert.Empty(t, got)

			var invalid ErrInvalidEmail
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.input, invalid.Input)
		})
	}
}
