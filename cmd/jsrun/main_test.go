package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const timerScript = `
const { AsyncLocalStorage } = require('node:async_hooks');
const als = new AsyncLocalStorage();
new Promise((resolve) => als.run('ctx', () => setTimeout(() => resolve(String(als.getStore())), 1)))
`

func TestRunFromStdin(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(nil, strings.NewReader(`console.log('hi'); 1 + 1`), &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "[log] hi\n2\n", stdout.String())
}

func TestRunBridgeFlag(t *testing.T) {
	tests := []struct {
		bridge string
		want   string
	}{
		{bridge: "embedder", want: "ctx"},
		{bridge: "local", want: "undefined"},
	}

	for _, tt := range tests {
		t.Run(tt.bridge, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run([]string{"-bridge", tt.bridge}, strings.NewReader(timerScript), &stdout, &stderr)

			require.Equal(t, 0, code, stderr.String())
			assert.Equal(t, tt.want+"\n", stdout.String())
		})
	}
}

func TestRunJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.js")
	require.NoError(t, os.WriteFile(path, []byte(`[1, 'two']`), 0o600))

	var stdout, stderr bytes.Buffer
	code := run([]string{"-json", path}, nil, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var out output
	require.NoError(t, sonic.Unmarshal(stdout.Bytes(), &out))
	assert.True(t, strings.HasPrefix(out.ExecutionID, "exec_"))
	assert.Equal(t, []interface{}{float64(1), "two"}, out.Value)
	assert.Empty(t, out.Error)
}

func TestRunScriptError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-json"}, strings.NewReader(`throw new TypeError('bad')`), &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "TypeError")
}

func TestRunConfigProfile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("bridge: local\ntimeout: 2s\nconsole: false\n"), 0o600))

	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", cfgPath}, strings.NewReader(`typeof console`), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "undefined\n", stdout.String())

	stdout.Reset()
	code = run([]string{"-config", cfgPath, "-bridge", "embedder"}, strings.NewReader(timerScript), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "ctx\n", stdout.String())
}

func TestRunBadInputs(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 2, run([]string{"-bridge", "threads"}, strings.NewReader("1"), &stdout, &stderr))
	assert.Equal(t, 2, run([]string{"-config", "/does/not/exist.yaml"}, strings.NewReader("1"), &stdout, &stderr))
	assert.Equal(t, 2, run([]string{"/does/not/exist.js"}, nil, &stdout, &stderr))
	assert.Equal(t, 2, run([]string{"-nope"}, nil, &stdout, &stderr))
}
