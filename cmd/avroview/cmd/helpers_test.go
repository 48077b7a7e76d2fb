package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hamba/avro/v2/ocf"
	"github.com/ssargent/avroview/pkg/api"
	"github.com/ssargent/avroview/pkg/di"
	"github.com/stretchr/testify/require"
)

// recordingStarter captures the config a command would serve with.
type recordingStarter struct {
	calls  int
	config api.ServerConfig
	err    error
}

func (s *recordingStarter) CreateServerStarter() api.ServerStarter { return s }

func (s *recordingStarter) StartServer(ctx context.Context, config api.ServerConfig) error {
	s.calls++
	s.config = config
	return s.err
}

// withContainer installs a fresh container whose server never listens.
func withContainer(t *testing.T) *recordingStarter {
	t.Helper()
	starter := &recordingStarter{}
	c := di.NewContainer()
	c.SetServerFactory(starter)
	SetContainer(c)
	t.Cleanup(func() { SetContainer(nil) })
	return starter
}

// execute runs the command tree with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

const recordSchema = `{"type":"record","name":"Event","fields":[
	{"name":"id","type":"long"},
	{"name":"tag","type":["null","string"]}
]}`

type event struct {
	ID  int64   `avro:"id"`
	Tag *string `avro:"tag"`
}

// writeAvroFile writes events to dir/name and returns the path.
func writeAvroFile(t *testing.T, dir, name string, events ...event) string {
	t.Helper()
	var buf bytes.Buffer
	enc, err := ocf.NewEncoder(recordSchema, &buf, ocf.WithCodec(ocf.Deflate))
	require.NoError(t, err)
	for _, e := range events {
		require.NoError(t, enc.Encode(e))
	}
	require.NoError(t, enc.Close())

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
	return path
}
