package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServiceName(t *testing.T) {
	name, err := ParseServiceName("claude")
	require.NoError(t, err)
	assert.Equal(t, ServiceClaude, name)

	name, err = ParseServiceName(" ChatGPT ")
	require.NoError(t, err)
	assert.Equal(t, ServiceChatGPT, name)

	_, err = ParseServiceName("bard")
	assert.True(t, errors.Is(err, ErrUnknownService))
}

func TestMergeServiceConnections(t *testing.T) {
	services := MergeServiceConnections([]ServiceConnection{
		{ServiceName: ServiceGemini, IsConnected: true},
	})

	require.Len(t, services, 4)
	assert.Equal(t, ServiceChatGPT, services[0].Name)
	assert.Equal(t, "🤖", services[0].Icon)
	assert.False(t, services[0].IsConnected)
	assert.True(t, services[2].IsConnected)
	assert.Equal(t, "✨", services[2].Icon)
}

func TestErrorMatchesByCode(t *testing.T) {
	err := ErrWeakPassword.WithMessage("Password must contain a digit")
	assert.True(t, errors.Is(err, ErrWeakPassword))
	assert.False(t, errors.Is(err, ErrInvalidCredentials))
	assert.Equal(t, "Password must contain a digit", err.Error())
}
