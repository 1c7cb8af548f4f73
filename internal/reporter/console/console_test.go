package console

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"firestige.xyz/arpreflect/internal/core"
)

var request = core.Event{
	SenderHW:    [6]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff},
	SenderProto: [4]byte{10, 0, 0, 1},
	OpCode:      core.ARPRequest,
}

func TestReporter_Text(t *testing.T) {
	var buf bytes.Buffer
	r, err := New(&buf, "")
	require.NoError(t, err)

	require.NoError(t, r.Report(context.Background(), request))
	assert.Equal(t, request.String()+"\n", buf.String())
	assert.Equal(t, uint64(1), r.Reported())
	assert.Equal(t, Name, r.Name())
}

func TestReporter_JSON(t *testing.T) {
	var buf bytes.Buffer
	r, err := New(&buf, FormatJSON)
	require.NoError(t, err)

	require.NoError(t, r.Report(context.Background(), request))
	require.NoError(t, r.Report(context.Background(), request))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var got record
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, record{Op: "request", OpCode: 1, SenderMAC: "aa:bb:cc:dd:ee:ff", SenderIP: "10.0.0.1"}, got)
}

func TestReporter_YAML(t *testing.T) {
	var buf bytes.Buffer
	r, err := New(&buf, FormatYAML)
	require.NoError(t, err)

	reply := request
	reply.OpCode = core.ARPReply
	require.NoError(t, r.Report(context.Background(), request))
	require.NoError(t, r.Report(context.Background(), reply))

	dec := yaml.NewDecoder(&buf)
	var docs []record
	for {
		var rec record
		if err := dec.Decode(&rec); err != nil {
			break
		}
		docs = append(docs, rec)
	}
	require.Len(t, docs, 2)
	assert.Equal(t, "request", docs[0].Op)
	assert.Equal(t, "reply", docs[1].Op)
	assert.Equal(t, "10.0.0.1", docs[1].SenderIP)
}

func TestReporter_InvalidFormat(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "xml")
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestReporter_WriteError(t *testing.T) {
	r, err := New(failingWriter{}, FormatText)
	require.NoError(t, err)
	assert.Error(t, r.Report(context.Background(), request))
	assert.Zero(t, r.Reported())
}

func TestReporter_FlushBuffered(t *testing.T) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	r, err := New(bw, FormatText)
	require.NoError(t, err)

	require.NoError(t, r.Report(context.Background(), request))
	assert.Zero(t, buf.Len())
	require.NoError(t, r.Flush(context.Background()))
	assert.NotZero(t, buf.Len())
}
