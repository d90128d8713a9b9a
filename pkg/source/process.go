package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/notify/command"
	"github.com/grovetools/notify/errors"
	"github.com/grovetools/notify/logging"
	"github.com/grovetools/notify/pkg/inotify"
	"github.com/grovetools/notify/pkg/process"
)

const (
	readyPrefix = "Watches established"
	setupPrefix = "Setting up watches"

	// maxLineSize bounds a single output line; paths can be long.
	maxLineSize = 1 << 20
)

// Options configures the inotifywait process.
type Options struct {
	Binary           string
	Path             string
	Recursive        bool
	ExcludePatterns  []string
	ExplicitPathList string
	Events           []string
	ExtraArgs        []string
	Env              []string
	Dir              string
	StopGrace        time.Duration
	BufferSize       int

	Executor command.Executor
	Logger   *logrus.Entry
	Now      func() time.Time
}

// Args assembles the inotifywait command line.
func Args(opts Options) []string {
	var args []string
	if opts.Recursive {
		args = append(args, "-r")
	}
	args = append(args,
		"--format", inotify.Format,
		"--timefmt", inotify.TimeFormat,
		"--monitor",
		// Directories are otherwise reported twice, once with a trailing slash.
		"--exclude", `^.*/$`,
	)
	for _, pattern := range opts.ExcludePatterns {
		args = append(args, "--exclude", pattern)
	}
	if opts.ExplicitPathList != "" {
		args = append(args, "--fromfile", opts.ExplicitPathList)
	}
	for _, event := range opts.Events {
		args = append(args, "--event", strings.ToLower(event))
	}
	args = append(args, opts.ExtraArgs...)
	if opts.Path != "" {
		args = append(args, opts.Path)
	}
	return args
}

// Process runs inotifywait and decodes its output.
type Process struct {
	stream
	opts    Options
	builder *command.SafeBuilder
	logger  *logrus.Entry

	cmdMu  sync.Mutex
	cmd    *exec.Cmd
	exited chan struct{}
}

// NewProcess validates opts and prepares a source. Nothing is spawned
// until Start.
func NewProcess(opts Options) (*Process, error) {
	if opts.Binary == "" {
		opts.Binary = "inotifywait"
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewLogger("notify-source")
	}

	builder := command.NewSafeBuilderWithExecutor(opts.Executor)
	if err := builder.Validate("binary", opts.Binary); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid source binary")
	}
	if opts.Path == "" && opts.ExplicitPathList == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nothing to watch")
	}
	for _, p := range []string{opts.Path, opts.ExplicitPathList} {
		if p == "" {
			continue
		}
		if err := builder.Validate("fileName", p); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid watch path").WithDetail("path", p)
		}
	}
	for _, event := range opts.Events {
		if err := builder.Validate("event", strings.ToLower(event)); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid raw kind filter")
		}
	}
	for _, entry := range opts.Env {
		if err := builder.Validate("envEntry", entry); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid source environment")
		}
	}

	return &Process{
		stream:  newStream(opts.BufferSize, opts.Now),
		opts:    opts,
		builder: builder,
		logger:  opts.Logger.WithField("binary", opts.Binary),
		exited:  make(chan struct{}),
	}, nil
}

// Start spawns the process.
func (p *Process) Start(ctx context.Context) error {
	args := Args(p.opts)
	built, err := p.builder.BuildLongRunning(context.WithoutCancel(ctx), p.opts.Binary, args...)
	if err != nil {
		return errors.SourceSpawn(p.opts.Binary, err)
	}

	cmd := built.Exec()
	cmd.Dir = p.opts.Dir
	cmd.Env = append(os.Environ(), p.opts.Env...)
	cmd.SysProcAttr = process.GroupAttr()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.SourceSpawn(p.opts.Binary, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return errors.SourceSpawn(p.opts.Binary, err)
	}

	p.logger.WithField("args", strings.Join(args, " ")).Debug("Starting source")
	if err := cmd.Start(); err != nil {
		return errors.SourceSpawn(p.opts.Binary, err)
	}

	p.cmdMu.Lock()
	p.cmd = cmd
	p.cmdMu.Unlock()

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		p.readStdout(stdout)
	}()
	go func() {
		defer readers.Done()
		p.readStderr(stderr)
	}()

	go func() {
		readers.Wait()
		waitErr := cmd.Wait()
		close(p.exited)
		built.Release()

		var exitErr error
		if !p.stopRequested() {
			if waitErr == nil {
				waitErr = fmt.Errorf("exited")
			}
			exitErr = errors.SourceExited(p.opts.Binary, waitErr)
			p.report(exitErr)
		}
		p.logger.WithError(waitErr).Debug("Source exited")
		p.finish(exitErr)
	}()

	go func() {
		select {
		case <-ctx.Done():
			_ = p.Stop()
		case <-p.done:
		}
	}()

	return nil
}

func (p *Process) readStdout(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		if !p.decodeLine(scanner.Bytes()) {
			// Keep draining so the process never blocks on a full pipe.
			_, _ = io.Copy(io.Discard, r)
			return
		}
	}
	if err := scanner.Err(); err != nil && !p.stopRequested() {
		p.report(errors.Wrap(err, errors.ErrCodeSourceStderr, "failed reading source output"))
		_, _ = io.Copy(io.Discard, r)
	}
}

func (p *Process) readStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case strings.HasPrefix(line, readyPrefix):
			p.logger.Debug("Watches established")
			p.markReady()
		case strings.HasPrefix(line, setupPrefix):
		default:
			if !p.stopRequested() {
				p.report(errors.SourceStderr(p.opts.Binary, line))
			}
		}
	}
}

// Pid returns the process id, or 0 before Start.
func (p *Process) Pid() int {
	p.cmdMu.Lock()
	defer p.cmdMu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Stop terminates the process group, escalating to SIGKILL after the grace
// period, and waits for the output to drain.
func (p *Process) Stop() error {
	if !p.requestStop() {
		<-p.done
		return nil
	}

	pid := p.Pid()
	if pid == 0 {
		p.finish(nil)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*p.grace()+time.Second)
	defer cancel()
	err := process.Stop(ctx, pid, p.exited, p.grace())
	if err == process.ErrProcessNotFound {
		// Exited on its own between the stop request and the signal.
		err = nil
	}
	<-p.done
	return err
}

func (p *Process) grace() time.Duration {
	if p.opts.StopGrace > 0 {
		return p.opts.StopGrace
	}
	return process.DefaultStopGrace
}
