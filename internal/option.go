package internal

import "io"

// Mode selects what Run does.
type Mode string

// Run modes.
const (
	ModeBuild Mode = "build"
	ModeWatch Mode = "watch"
	ModeServe Mode = "serve"
	ModeMCP   Mode = "mcp"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	mode    Mode
	version string
	logOut  io.Writer
	stdin   io.Reader
	stdout  io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMode sets the run mode. The default is ModeBuild.
func WithMode(mode Mode) Option {
	return func(a *application) {
		a.mode = mode
	}
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(version string) Option {
	return func(a *application) {
		a.version = version
	}
}

// WithLogOutput redirects logs; the default is stderr.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOut = w
	}
}

// WithStdio sets the MCP transport streams; the default is stdin/stdout.
func WithStdio(in io.Reader, out io.Writer) Option {
	return func(a *application) {
		a.stdin = in
		a.stdout = out
	}
}
