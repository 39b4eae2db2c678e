package cli

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/thanhnguyen2187/bindef/bstruct"
)

const recordSchema = `
root:
  type: Container
  name: record
  entries:
    - {type: UInt8, name: kind}
    - {type: UInt16, name: value}
`

type CLITestSuite struct {
	Dir    string
	Schema string
	Input  string
	Stdout *bytes.Buffer
	R      *require.Assertions
	suite.Suite
}

func (suite *CLITestSuite) SetupTest() {
	suite.R = suite.Require()
	suite.Dir = suite.T().TempDir()
	suite.Schema = suite.file("record.yaml", recordSchema)
	suite.Input = suite.file("record.bin", "\x01\x34\x12")
	suite.Stdout = &bytes.Buffer{}
}

func (suite *CLITestSuite) file(name string, content string) string {
	path := filepath.Join(suite.Dir, name)
	suite.R.NoError(os.WriteFile(path, []byte(content), 0644))
	return path
}

func (suite *CLITestSuite) run(args Args) error {
	return Run(args, suite.Stdout, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (suite *CLITestSuite) TestCheck() {
	suite.R.NoError(suite.run(Args{Check: &CheckCmd{Schema: suite.Schema}}))
	out := strings.TrimSpace(suite.Stdout.String())
	suite.R.True(strings.HasPrefix(out, "ok "), out)
	suite.R.Len(strings.TrimPrefix(out, "ok "), 64)

	suite.Stdout.Reset()
	suite.R.NoError(suite.run(Args{Check: &CheckCmd{Schema: BuiltinDSON}}))
	suite.R.Contains(suite.Stdout.String(), "ok ")
}

func (suite *CLITestSuite) TestCheckReportsEveryProblem() {
	bad := suite.file("bad.yaml", `
root:
  type: Container
  name: record
  entries:
    - {type: UInt8, name: kind, align: x}
    - {type: Nope, name: value}
`)
	err := suite.run(Args{Check: &CheckCmd{Schema: bad}})
	suite.R.Error(err)
	suite.R.Contains(suite.Stdout.String(), "align must be an integer")
	suite.R.Error(suite.run(Args{Check: &CheckCmd{Schema: filepath.Join(suite.Dir, "missing.yaml")}}))
}

func (suite *CLITestSuite) TestParse() {
	output := filepath.Join(suite.Dir, "record.json")
	cmd := &ParseCmd{Schema: suite.Schema, Input: suite.Input, Output: output}
	suite.R.NoError(suite.run(Args{Parse: cmd}))
	data, err := os.ReadFile(output)
	suite.R.NoError(err)
	suite.R.JSONEq(`{"kind": 1, "value": 4660}`, string(data))

	suite.R.Error(suite.run(Args{Parse: cmd}))
	cmd.Force = true
	suite.R.NoError(suite.run(Args{Parse: cmd}))
}

func (suite *CLITestSuite) TestParseUsesConfigFormat() {
	config := suite.file("bindef.yaml", "format: yaml\nendian: big\n")
	output := filepath.Join(suite.Dir, "record.txt")
	cmd := &ParseCmd{Schema: suite.Schema, Input: suite.Input, Output: output}
	suite.R.NoError(suite.run(Args{Config: config, Parse: cmd}))
	data, err := os.ReadFile(output)
	suite.R.NoError(err)
	suite.R.Equal("kind: 1\nvalue: 13330\n", string(data))
}

func (suite *CLITestSuite) TestBuild() {
	values := suite.file("values.json", `{"kind": 1, /* little endian */ "value": 4660}`)
	output := filepath.Join(suite.Dir, "built.bin")
	cmd := &BuildCmd{Schema: suite.Schema, Values: values, Output: output}
	suite.R.NoError(suite.run(Args{Build: cmd}))
	data, err := os.ReadFile(output)
	suite.R.NoError(err)
	suite.R.Equal([]byte{0x01, 0x34, 0x12}, data)

	err = suite.run(Args{Build: cmd})
	suite.R.ErrorIs(err, bstruct.ErrFileExists)
}

func (suite *CLITestSuite) TestTypes() {
	suite.R.NoError(suite.run(Args{Types: &TypesCmd{}}))
	names := strings.Split(strings.TrimSpace(suite.Stdout.String()), "\n")
	suite.R.Contains(names, "UInt16")
	suite.R.Contains(names, "StreamAdapter")
}

func TestCLITestSuite(t *testing.T) {
	suite.Run(t, new(CLITestSuite))
}

func TestRun_NoSubcommand(t *testing.T) {
	err := Run(Args{}, io.Discard, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestReadConfig(t *testing.T) {
	config, err := ReadConfig("")
	require.NoError(t, err)
	assert.Equal(t, Config{}, config)

	path := filepath.Join(t.TempDir(), "bindef.yaml")
	require.NoError(t, os.WriteFile(path, []byte("allow_corrupt: true\nalign_mode: auto\n"), 0644))
	config, err = ReadConfig(path)
	require.NoError(t, err)
	assert.True(t, config.AllowCorrupt)
	assert.Equal(t, "auto", config.AlignMode.String())
}
