package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairwatch/internal/config"
)

func TestPrintSources(t *testing.T) {
	var buf bytes.Buffer
	err := printSources(&buf, []config.Source{
		{Name: "PopSwap", Factory: "0x195B605FA7C6F379FD27DDEEC89CFAE6CAABFAE9"},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "TOPIC0")
	assert.Contains(t, lines[1], "PopSwap")
	assert.Contains(t, lines[1], "0x195b605fa7c6f379fd27ddeec89cfae6caabfae9")
	assert.Contains(t, lines[1], "0x0d3648bd0f6ba80134a33ba9275ac585d9d315f0ad8355cddefde31afa28d0e9")
}

func TestPrintSourcesInvalidAddress(t *testing.T) {
	var buf bytes.Buffer
	err := printSources(&buf, []config.Source{{Name: "Bad", Factory: "0x12"}})
	assert.Error(t, err)
}

func TestRedactDSN(t *testing.T) {
	assert.Equal(t, "", redactDSN(""))
	assert.Equal(t, "***", redactDSN("postgres://user:pw@host/db"))
}
