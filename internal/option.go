package internal

import "io"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	version   string
	serveMCP  bool
	stdin     io.Reader
	stdout    io.Writer
	logOutput io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithMCP serves MCP over in and out alongside the watcher. Without it Run
// only watches the workspace.
func WithMCP(in io.Reader, out io.Writer) Option {
	return func(a *application) {
		a.serveMCP = true
		a.stdin = in
		a.stdout = out
	}
}

// WithLogOutput redirects the JSON log stream. It defaults to stderr so
// stdout stays free for command output and the MCP transport.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}
