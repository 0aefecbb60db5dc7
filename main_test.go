package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vreid/stakes/internal/pkg/registry"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd := newCommand()
	cmd.Writer = &out
	cmd.ErrWriter = io.Discard

	err := cmd.Run(context.Background(), append([]string{"stakes"}, args...))

	return out.String(), err
}

func mintArgs(dataDir, version string) []string {
	return []string{
		"mint",
		"--data-dir", dataDir,
		"--issuer", "studio",
		"--collection", "armory",
		"--name", "sword",
		"--version", version,
		"--to", "alice",
	}
}

func TestMintVersion(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()

	out, err := runCommand(t, mintArgs(dataDir, "3")...)
	require.NoError(t, err)

	expected := registry.AssetSpec{
		Issuer:     "studio",
		Collection: "armory",
		Name:       "sword",
		Version:    3,
	}.ID()
	assert.Equal(t, string(expected), strings.TrimSpace(out))
}

func TestMintRejectsNegativeVersion(t *testing.T) {
	t.Parallel()

	_, err := runCommand(t, mintArgs(t.TempDir(), "-1")...)
	require.Error(t, err)
}
