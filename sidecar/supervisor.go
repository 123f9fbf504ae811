package sidecar

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"tiptune-shell/store"
)

const (
	recordKey  = "sidecar:current"
	maxLogRead = 100 * 1024 // 100KB

	DefaultName = "TipTune"
)

// ErrAlreadyStarted is returned by a second call to Supervisor.Start.
var ErrAlreadyStarted = errors.New("sidecar supervisor already started")

// Options configures a Supervisor.
type Options struct {
	// Name is the sidecar binary name, resolved next to the host executable.
	Name string
	// Path overrides binary resolution when set.
	Path string
	Args []string

	WebHost     string
	WebPort     int
	AppDataDir  string
	LogFileName string

	// Store persists the run record; nil disables persistence and stale
	// sidecar reaping.
	Store store.Store
	// Killer overrides the platform kill strategy.
	Killer Killer
	Logger *zap.Logger
	// Sinks receive every stdout/stderr line of the sidecar.
	Sinks []LineSink

	LookupEnv func(string) (string, bool)
}

// Supervisor owns the single TipTune sidecar: it launches it once, drains
// its output in the background and tears it down when any lifecycle trigger
// fires.
type Supervisor struct {
	opts   Options
	log    *zap.Logger
	store  store.Store
	killer Killer

	state *State
	term  *Terminator

	mu     sync.Mutex
	record RunRecord
	env    Environment

	started atomic.Bool
	done    chan struct{}
}

// New creates a Supervisor. Nothing is started until Start is called.
func New(opts Options) *Supervisor {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	killer := opts.Killer
	if killer == nil {
		killer = DefaultKiller()
	}

	s := &Supervisor{
		opts:   opts,
		log:    log,
		store:  opts.Store,
		killer: killer,
		state:  &State{},
		done:   make(chan struct{}),
	}
	s.term = NewTerminator(s.state, killer, log)
	s.term.onTaken = s.recordStop
	return s
}

// Start launches the sidecar and begins draining its output. It may only be
// called once. A *LaunchError means the sidecar could not be started and
// the host should abort; the lifecycle state stays empty in that case.
func (s *Supervisor) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	s.reapStale()

	env := BuildEnvironment(EnvOptions{
		ParentPID:   os.Getpid(),
		WebHost:     s.opts.WebHost,
		WebPort:     s.opts.WebPort,
		AppDataDir:  s.opts.AppDataDir,
		LogFileName: s.opts.LogFileName,
		LookupEnv:   s.opts.LookupEnv,
	})

	bin, err := ResolveBinary(s.opts.Name, s.opts.Path)
	if err != nil {
		close(s.done)
		return err
	}

	child, events, err := Launch(bin, s.opts.Args, env)
	if err != nil {
		close(s.done)
		return err
	}
	if err := s.state.Put(child); err != nil {
		_ = s.killer.Kill(child)
		close(s.done)
		return fmt.Errorf("storing sidecar handle: %w", err)
	}

	record := RunRecord{
		PID:        child.Pid(),
		CreateTime: processCreateTime(child.Pid()),
		Binary:     bin,
		LogPath:    env.LogPath(),
		StartedAt:  time.Now().UTC(),
	}
	s.mu.Lock()
	s.env = env
	s.record = record
	s.mu.Unlock()

	if err := s.persist(record); err != nil {
		s.log.Warn("persisting sidecar run record", zap.Error(err))
	}

	s.log.Info("sidecar started",
		zap.Int("pid", record.PID),
		zap.String("binary", bin),
		zap.String("log_path", record.LogPath))

	go func() {
		defer close(s.done)
		Drain(events, s.term, s.log.Named("output"), s.opts.Sinks...)
		s.recordExit(child.Exit())
	}()

	return nil
}

// Shutdown ensures the sidecar is not running. Safe to call multiple times
// and from any goroutine.
func (s *Supervisor) Shutdown(reason Reason) {
	s.term.Terminate(reason)
}

// Done is closed when the sidecar is gone, or immediately after a failed
// Start.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// Running reports whether the lifecycle state currently holds the sidecar.
func (s *Supervisor) Running() bool {
	return s.state.Present()
}

// Status returns the current run record with live process metrics.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	st := Status{RunRecord: s.record}
	s.mu.Unlock()

	pid, ok := s.state.Pid()
	st.Running = ok
	if ok {
		st.RSSBytes, st.CPUPercent = processUsage(pid)
	}
	return st
}

// LogPath returns the sidecar's log file, or "" if it picks its own.
func (s *Supervisor) LogPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.env.LogPath()
}

// GetLogs returns the last ~100KB of the sidecar's log file.
func (s *Supervisor) GetLogs() (string, error) {
	path := s.LogPath()
	if path == "" {
		return "", errors.New("sidecar log path not set")
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat log file: %w", err)
	}

	if offset := stat.Size() - maxLogRead; offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return "", fmt.Errorf("seeking log file: %w", err)
		}
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("reading log file: %w", err)
	}
	return string(data), nil
}

func (s *Supervisor) recordStop(_ Handle, reason Reason) {
	s.mu.Lock()
	s.record.StopReason = reason
	s.mu.Unlock()
}

func (s *Supervisor) recordExit(exit *ExitPayload) {
	now := time.Now().UTC()
	s.mu.Lock()
	s.record.ExitedAt = &now
	s.record.Exit = exit
	record := s.record
	s.mu.Unlock()

	// Best-effort update; ignore store errors.
	_ = s.persist(record)
}

// reapStale kills a sidecar left behind by a previous host that died
// without cleaning up, and forgets its record. The pid must still belong to
// the same process, which is checked by creation time.
func (s *Supervisor) reapStale() {
	prev, ok := s.loadRecord()
	if !ok || prev.ExitedAt != nil || prev.PID <= 0 || prev.CreateTime == 0 {
		return
	}

	h, ok := findStale(prev.PID, prev.CreateTime)
	if !ok {
		return
	}

	s.log.Warn("killing sidecar left over from a previous run",
		zap.Int("pid", prev.PID),
		zap.String("reason", string(ReasonStale)))
	if err := s.killer.Kill(h); err != nil {
		s.log.Debug("kill failed", zap.Int("pid", prev.PID), zap.Error(err))
	}

	if err := s.store.Delete(recordKey); err != nil {
		s.log.Debug("clearing stale sidecar run record", zap.Error(err))
	}
}

func (s *Supervisor) loadRecord() (RunRecord, bool) {
	var rec RunRecord
	if s.store == nil {
		return rec, false
	}
	raw, err := s.store.Get(recordKey)
	if err != nil {
		return rec, false
	}
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		s.log.Warn("dropping unreadable sidecar run record", zap.Error(err))
		_ = s.store.Delete(recordKey)
		return rec, false
	}
	return rec, true
}

func (s *Supervisor) persist(rec RunRecord) error {
	if s.store == nil {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.store.Set(recordKey, string(data))
}
