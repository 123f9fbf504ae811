package sidecar

import (
	"os"
	"path/filepath"
	"strconv"
)

// Environment variable names understood by the TipTune sidecar.
const (
	EnvParentPID      = "TIPTUNE_PARENT_PID"
	EnvWebHost        = "TIPTUNE_WEB_HOST"
	EnvWebPort        = "TIPTUNE_WEB_PORT"
	EnvLogLevel       = "TIPTUNE_LOG_LEVEL"
	EnvDefaultLogPath = "TIPTUNE_DEFAULT_LOG_PATH"
)

const (
	DefaultLogLevel    = "INFO"
	DefaultLogFileName = "tiptune-sidecar.log"
)

// EnvVar is a single NAME=VALUE entry.
type EnvVar struct {
	Name  string
	Value string
}

// Environment is the ordered set of variables added to the sidecar's
// inherited environment. It is not modified after BuildEnvironment returns.
type Environment []EnvVar

// Lookup returns the value of name, if present.
func (e Environment) Lookup(name string) (string, bool) {
	for _, v := range e {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}

// Strings renders the entries in os/exec form.
func (e Environment) Strings() []string {
	out := make([]string, 0, len(e))
	for _, v := range e {
		out = append(out, v.Name+"="+v.Value)
	}
	return out
}

// LogPath returns the log file the sidecar was told to use, or "".
func (e Environment) LogPath() string {
	p, _ := e.Lookup(EnvDefaultLogPath)
	return p
}

// EnvOptions are the inputs to BuildEnvironment.
type EnvOptions struct {
	ParentPID int
	WebHost   string
	WebPort   int

	// AppDataDir is where the sidecar log goes unless the caller already
	// supplied TIPTUNE_DEFAULT_LOG_PATH. Empty means no data dir resolved.
	AppDataDir  string
	LogFileName string

	// LookupEnv reads the host's environment; nil means os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// BuildEnvironment computes the variables passed to the sidecar.
//
// The log path is redirected into the app data directory because during
// development the host's working tree is watched by the reload tooling and a
// log file written there restarts the app in a loop. The directory is
// created if missing; if that fails the entry is left out and the sidecar
// falls back to its own default.
func BuildEnvironment(opts EnvOptions) Environment {
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	env := Environment{
		{Name: EnvParentPID, Value: strconv.Itoa(opts.ParentPID)},
		{Name: EnvWebHost, Value: opts.WebHost},
		{Name: EnvWebPort, Value: strconv.Itoa(opts.WebPort)},
	}

	if level, ok := lookup(EnvLogLevel); ok {
		env = append(env, EnvVar{Name: EnvLogLevel, Value: level})
	} else {
		env = append(env, EnvVar{Name: EnvLogLevel, Value: DefaultLogLevel})
	}

	if p, ok := lookup(EnvDefaultLogPath); ok {
		env = append(env, EnvVar{Name: EnvDefaultLogPath, Value: p})
	} else if opts.AppDataDir != "" {
		if err := os.MkdirAll(opts.AppDataDir, 0o755); err == nil {
			name := opts.LogFileName
			if name == "" {
				name = DefaultLogFileName
			}
			env = append(env, EnvVar{Name: EnvDefaultLogPath, Value: filepath.Join(opts.AppDataDir, name)})
		}
	}

	return env
}
