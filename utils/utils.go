package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
)

// Mode is the operation selected on the command line
type Mode int

// Command line modes
const (
	ModeNone Mode = iota
	ModeSearch
	ModeRender
	ModeIndex
	ModeConvert
)

func (m Mode) String() string {
	switch m {
	case ModeSearch:
		return "search"
	case ModeRender:
		return "render"
	case ModeIndex:
		return "index"
	case ModeConvert:
		return "convert"
	default:
		return "none"
	}
}

// Config holds the parsed command line
type Config struct {
	Directory string
	Image     string
	Output    string
	Database  string
	LogFile   string
	Top       int
	Workers   int
	Index     bool
	Convert   bool
	ASCII     bool
	Force     bool
	Debug     bool
	Progress  bool
}

// ErrUsage is returned when the arguments select no runnable mode.
var ErrUsage = errors.New("missing or conflicting arguments")

// ParseFlags parses args (without the program name) into a Config
func ParseFlags(program string, args []string) (*Config, error) {
	cfg := &Config{}
	fs := pflag.NewFlagSet(program, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVarP(&cfg.Directory, "dir", "d", "", "Directory of reference .pgm images")
	fs.StringVarP(&cfg.Image, "image", "i", "", "Query image (search) or input image (render, convert)")
	fs.StringVarP(&cfg.Output, "output", "o", "", "Output image for render and convert")
	fs.StringVar(&cfg.Database, "db", "", "Keep histograms in a sqlite index instead of .lbp sidecar files")
	fs.StringVar(&cfg.LogFile, "logfile", "lbpfinder.log", "Debug log file")
	fs.IntVar(&cfg.Top, "top", 0, "Also print the N closest images")
	fs.IntVarP(&cfg.Workers, "workers", "j", 0, "Parallel workers for --index (default: 3/4 of the CPUs)")
	fs.BoolVar(&cfg.Index, "index", false, "Precompute the histograms of every image in --dir")
	fs.BoolVar(&cfg.Convert, "convert", false, "Convert a JPEG/PNG/TIFF/BMP image into a PGM")
	fs.BoolVar(&cfg.ASCII, "ascii", false, "Write converted images as plain-text P2")
	fs.BoolVar(&cfg.Force, "force", false, "Recompute stored histograms during --index")
	fs.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&cfg.Progress, "progress", true, "Show a progress bar during --index")

	fs.Lookup("db").NoOptDefVal = GetDefaultDatabasePath()

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return cfg, nil
}

// Mode derives the operation from the flags that were set
func (c *Config) Mode() Mode {
	switch {
	case c.Convert:
		return ModeConvert
	case c.Index:
		return ModeIndex
	case c.Directory != "" && c.Image != "":
		return ModeSearch
	case c.Image != "" && c.Output != "":
		return ModeRender
	default:
		return ModeNone
	}
}

// Validate checks that the selected mode has everything it needs
func (c *Config) Validate() error {
	switch c.Mode() {
	case ModeNone:
		return ErrUsage
	case ModeSearch:
		if c.Output != "" {
			return fmt.Errorf("%w: -o cannot be combined with -d and -i", ErrUsage)
		}
	case ModeConvert:
		if c.Image == "" || c.Output == "" {
			return fmt.Errorf("%w: --convert needs -i and -o", ErrUsage)
		}
	case ModeIndex:
		if c.Directory == "" {
			return fmt.Errorf("%w: --index needs -d", ErrUsage)
		}
	}
	if c.Top < 0 {
		return fmt.Errorf("--top must not be negative, got %d", c.Top)
	}
	if c.Workers < 0 {
		return fmt.Errorf("--workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// GetDefaultDatabasePath returns the default path for the histogram index
func GetDefaultDatabasePath() string {
	exePath, err := os.Executable()
	if err != nil {
		return "histograms.db"
	}
	return filepath.Join(filepath.Dir(exePath), "histograms.db")
}

// PrintUsage outputs the command-line usage instructions. convertFormats lists
// the extensions --convert accepts.
func PrintUsage(w io.Writer, program string, convertFormats []string) {
	fmt.Fprintf(w, "Usage:\n")
	fmt.Fprintf(w, "  %s -d DIR -i IMAGE.pgm [--top=N] [--db[=PATH]] [--debug] [--logfile=PATH]\n", program)
	fmt.Fprintf(w, "  %s -i IMAGE.pgm -o OUTPUT.pgm [--debug]\n", program)
	fmt.Fprintf(w, "  %s -d DIR --index [-j N] [--force] [--db[=PATH]] [--debug]\n", program)
	fmt.Fprintf(w, "  %s -i PHOTO.jpg -o OUTPUT.pgm --convert [--ascii]\n", program)
	fmt.Fprintf(w, "\nParameters:\n")
	fmt.Fprintf(w, "  -d, --dir       : Directory of reference .pgm images\n")
	fmt.Fprintf(w, "  -i, --image     : Query image (search) or input image (render, convert)\n")
	fmt.Fprintf(w, "  -o, --output    : Output image for render and convert\n")
	fmt.Fprintf(w, "  --top           : Also print the N closest images\n")
	fmt.Fprintf(w, "  --index         : Precompute the histograms of every image in --dir\n")
	fmt.Fprintf(w, "  -j, --workers   : Parallel workers for --index\n")
	fmt.Fprintf(w, "  --force         : Recompute stored histograms during --index\n")
	fmt.Fprintf(w, "  --db            : Use a sqlite histogram index (default: %s)\n", GetDefaultDatabasePath())
	fmt.Fprintf(w, "  --convert       : Convert an image into a PGM (%s)\n", strings.Join(convertFormats, " "))
	fmt.Fprintf(w, "  --ascii         : Write converted images as plain-text P2\n")
	fmt.Fprintf(w, "  --debug         : Enable debug mode (logs detailed information)\n")
	fmt.Fprintf(w, "  --logfile       : Debug log file (default: lbpfinder.log)\n")
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  %s -d ./textures -i ./query/bark.pgm\n", program)
	fmt.Fprintf(w, "  %s -i ./textures/bark.pgm -o bark-lbp.pgm\n", program)
}
