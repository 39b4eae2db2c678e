package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/pkg/errors"
	"github.com/thanhnguyen2187/bindef/bstruct"
	"github.com/thanhnguyen2187/bindef/bstruct/bdesc"
	"github.com/thanhnguyen2187/bindef/bstruct/bfield"
	"github.com/thanhnguyen2187/bindef/bstruct/bschema"
	"github.com/thanhnguyen2187/bindef/defs/dsondef"
	"github.com/thanhnguyen2187/bindef/ui"
	"gopkg.in/yaml.v3"
)

// BuiltinDSON names the built-in DSON schema in place of a schema file.
const BuiltinDSON = "dson"

type (
	Args struct {
		Config  string    `help:"YAML file with default settings" placeholder:"bindef.yaml"`
		Verbose bool      `arg:"-v" help:"log debug messages"`
		Check   *CheckCmd `arg:"subcommand:check" help:"validate a schema"`
		Parse   *ParseCmd `arg:"subcommand:parse" help:"dump the values of a binary file"`
		Build   *BuildCmd `arg:"subcommand:build" help:"write a binary file from values"`
		View    *ViewCmd  `arg:"subcommand:view" help:"browse a binary file"`
		Types   *TypesCmd `arg:"subcommand:types" help:"list field types"`
	}
	CheckCmd struct {
		Schema string `arg:"required" help:"schema file, or dson" placeholder:"s.yaml"`
	}
	ParseCmd struct {
		Schema       string `arg:"required" help:"schema file, or dson" placeholder:"s.yaml"`
		Input        string `arg:"required" help:"binary file" placeholder:"f.bin"`
		Output       string `arg:"required" help:"values file" placeholder:"f.json"`
		Format       string `help:"json, yaml or cbor; defaults to the output extension"`
		RootOffset   int    `help:"where the data starts in the input"`
		AllowCorrupt bool   `help:"keep what could be read"`
		Force        bool   `help:"overwrite the output file"`
	}
	BuildCmd struct {
		Schema string `arg:"required" help:"schema file, or dson" placeholder:"s.yaml"`
		Values string `arg:"required" help:"values file" placeholder:"v.json"`
		Output string `arg:"required" help:"binary file" placeholder:"f.bin"`
		Force  bool   `help:"overwrite the output file"`
	}
	ViewCmd struct {
		Schema       string `arg:"required" help:"schema file, or dson" placeholder:"s.yaml"`
		Input        string `arg:"required" help:"binary file" placeholder:"f.bin"`
		RootOffset   int    `help:"where the data starts in the input"`
		AllowCorrupt bool   `help:"keep what could be read"`
	}
	TypesCmd struct{}

	// Config holds defaults read from --config. Flags take precedence.
	Config struct {
		Endian       bfield.Endian   `yaml:"endian"`
		AlignMode    bdesc.AlignMode `yaml:"align_mode"`
		Format       string          `yaml:"format"`
		AllowCorrupt bool            `yaml:"allow_corrupt"`
	}
)

func (Args) Description() string {
	des := strings.Join(
		[]string{
			"Declarative binary structures in the command line.\n",
			"Check schemas, turn binary files into JSON, YAML or CBOR values",
			"and write values back into binary files.",
		},
		"\n",
	)
	des += "\n"
	return des
}

func ReadConfig(path string) (Config, error) {
	config := Config{}
	if path == "" {
		return config, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return config, errors.Wrap(err, "reading config")
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, errors.Wrapf(err, "parsing config %s", path)
	}
	return config, nil
}

// runner carries what every subcommand needs.
type runner struct {
	config Config
	stdout io.Writer
	logger *slog.Logger
	cache  *bschema.Cache
}

func newRunner(config Config, stdout io.Writer, logger *slog.Logger) *runner {
	return &runner{
		config: config,
		stdout: stdout,
		logger: logger,
		cache: bschema.NewCache(bdesc.Options{
			Endian:    config.Endian,
			AlignMode: config.AlignMode,
			Warn:      true,
			Logger:    logger,
		}),
	}
}

func (r *runner) schema(name string) (*bdesc.Descriptor, error) {
	if name == BuiltinDSON {
		return dsondef.Descriptor(), nil
	}
	if !bstruct.CheckExistence(name) {
		return nil, errors.Errorf("schema file %s does not exist", name)
	}
	format, err := bschema.FormatOf(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "reading schema")
	}
	desc, hit, err := r.cache.Load(data, format)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("loaded schema", "path", name, "cached", hit)
	return desc, nil
}

func (r *runner) check(cmd *CheckCmd) error {
	desc, err := r.schema(cmd.Schema)
	var (
		sanitizeErr   *bdesc.SanitizationError
		conversionErr *bschema.ConversionError
	)
	switch {
	case errors.As(err, &sanitizeErr):
		for _, msg := range sanitizeErr.Messages {
			fmt.Fprintln(r.stdout, msg)
		}
		return errors.Errorf("%d problems in %s", len(sanitizeErr.Messages), cmd.Schema)
	case errors.As(err, &conversionErr):
		for _, msg := range conversionErr.Messages {
			fmt.Fprintln(r.stdout, msg)
		}
		return errors.Errorf("%d problems in %s", len(conversionErr.Messages), cmd.Schema)
	case err != nil:
		return err
	}
	hash, err := bschema.Fingerprint(desc)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.stdout, "ok %s\n", hash)
	return nil
}

func (r *runner) read(schema string, input string, rootOffset int, allowCorrupt bool) (*bstruct.Tag, error) {
	desc, err := r.schema(schema)
	if err != nil {
		return nil, err
	}
	if !bstruct.CheckExistence(input) {
		return nil, errors.Errorf("source file %s does not exist", input)
	}
	return bstruct.ParseFile(desc, input,
		bstruct.RootOffset(rootOffset),
		bstruct.AllowCorrupt(allowCorrupt || r.config.AllowCorrupt),
		bstruct.Logger(r.logger),
	)
}

func (r *runner) parse(cmd *ParseCmd) error {
	if bstruct.CheckExistence(cmd.Output) && !cmd.Force {
		return errors.Errorf("destination file %s exists, pass --force to overwrite it", cmd.Output)
	}
	name := cmd.Format
	if name == "" {
		name = r.config.Format
	}
	if name == "" {
		name = cmd.Output
	}
	format, err := bstruct.ParseFormat(name)
	if err != nil {
		return err
	}
	tag, err := r.read(cmd.Schema, cmd.Input, cmd.RootOffset, cmd.AllowCorrupt)
	if err != nil {
		return err
	}
	data, err := bstruct.Dump(tag, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(cmd.Output, data, 0644); err != nil {
		return errors.Wrapf(err, "writing %s", cmd.Output)
	}
	fmt.Fprintf(r.stdout, "Done converting. Please check your result file at: %s\n", cmd.Output)
	return nil
}

func (r *runner) build(cmd *BuildCmd) error {
	desc, err := r.schema(cmd.Schema)
	if err != nil {
		return err
	}
	format, err := bstruct.ParseFormat(cmd.Values)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(cmd.Values)
	if err != nil {
		return errors.Wrap(err, "reading values")
	}
	tag, err := bstruct.New(desc, bstruct.Logger(r.logger))
	if err != nil {
		return err
	}
	if err := bstruct.LoadValues(tag.Root, data, format); err != nil {
		return err
	}
	if err := tag.WriteFile(cmd.Output, cmd.Force); err != nil {
		return err
	}
	fmt.Fprintf(r.stdout, "Done building. Please check your result file at: %s\n", cmd.Output)
	return nil
}

func (r *runner) types() {
	for _, name := range bfield.Default().Names() {
		fmt.Fprintln(r.stdout, name)
	}
}

// Run executes the subcommand selected in args.
func Run(args Args, stdout io.Writer, logger *slog.Logger) error {
	config, err := ReadConfig(args.Config)
	if err != nil {
		return err
	}
	r := newRunner(config, stdout, logger)
	switch {
	case args.Check != nil:
		return r.check(args.Check)
	case args.Parse != nil:
		return r.parse(args.Parse)
	case args.Build != nil:
		return r.build(args.Build)
	case args.View != nil:
		tag, err := r.read(args.View.Schema, args.View.Input, args.View.RootOffset, args.View.AllowCorrupt)
		if err != nil {
			return err
		}
		return ui.Start(tag)
	case args.Types != nil:
		r.types()
		return nil
	}
	return errors.New("no subcommand given, see --help")
}

func Start() {
	args := Args{}
	p := arg.MustParse(&args)
	level := slog.LevelInfo
	if args.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	if err := Run(args, os.Stdout, logger); err != nil {
		if p.Subcommand() == nil {
			p.WriteHelp(os.Stderr)
		}
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
