package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hupe1980/probingpt/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const phraseTable = `le chat ||| the cat ||| 0.5 0.4
le chat ||| cat ||| 0.2 0.1
le ||| the ||| 0.7 0.6
chat ||| cat ||| 0.9 0.8
`

func TestBuildAndQuery(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	in := filepath.Join(dir, "pt.txt")
	out := filepath.Join(dir, "pt.pbpt")
	require.NoError(t, os.WriteFile(in, []byte(phraseTable), 0o600))

	require.NoError(t, runBuild(ctx, []string{"-in", in, "-out", out, "-compression", "zstd"}))
	require.NoError(t, runInfo(ctx, []string{"-index", out}))

	var buf bytes.Buffer
	err := runQuery(ctx, []string{"-index", out, "-limit", "1", "-workers", "2"},
		strings.NewReader("le chat\nchien\n\nle\n"), &buf)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "le chat ||| the cat |||"), lines[0])
	assert.Equal(t, "chien ||| <none>", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "le ||| the |||"), lines[2])
}

func TestSpanTokens(t *testing.T) {
	v := vocab.New()
	le := v.Intern("le")
	chat := v.Intern("chat")

	ids := spanTokens(v, []string{"le", "chien", "chat", "zzz-0", "zzz-1"})
	assert.Equal(t, []vocab.TokenID{le.ID, unknownToken, chat.ID, unknownToken, unknownToken}, ids)
	assert.Equal(t, 2, v.Len(), "unknown query words must not be interned")
	assert.GreaterOrEqual(t, int(unknownToken), v.Len())
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	_, name, err := openStore(ctx, "/tmp/pt.pbpt")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/pt.pbpt", name)

	_, _, err = openStore(ctx, "s3://bucket")
	require.Error(t, err)

	_, _, err = openStore(ctx, "ftp://bucket/pt.pbpt")
	require.Error(t, err)
}
