package source

import (
	"context"
	"io"
	stdlog "log"

	"github.com/hpcloud/tail"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/notify/errors"
	"github.com/grovetools/notify/logging"
)

// TraceOptions configures a Trace.
type TraceOptions struct {
	// Path is a file of recorded inotifywait output lines.
	Path string
	// Follow keeps reading as the file grows, like tail -f.
	Follow     bool
	BufferSize int
	Logger     *logrus.Entry
}

// Trace replays recorded inotifywait output from a file.
type Trace struct {
	stream
	opts   TraceOptions
	logger *logrus.Entry
	tail   *tail.Tail
}

// NewTrace creates a trace source. The file is opened on Start.
func NewTrace(opts TraceOptions) *Trace {
	if opts.Logger == nil {
		opts.Logger = logging.NewLogger("notify-source")
	}
	return &Trace{
		stream: newStream(opts.BufferSize, nil),
		opts:   opts,
		logger: opts.Logger.WithField("trace", opts.Path),
	}
}

// Start opens the trace file and begins replaying it.
func (t *Trace) Start(ctx context.Context) error {
	cfg := tail.Config{
		Follow:    t.opts.Follow,
		ReOpen:    t.opts.Follow,
		MustExist: true,
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekStart},
		Logger:    stdlog.New(io.Discard, "", 0),
	}
	tl, err := tail.TailFile(t.opts.Path, cfg)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSourceSpawn, "failed to open trace").WithDetail("path", t.opts.Path)
	}
	t.tail = tl
	t.markReady()

	go func() {
		defer t.finish(nil)
		for line := range tl.Lines {
			if line.Err != nil {
				t.report(errors.Wrap(line.Err, errors.ErrCodeSourceStderr, "trace read failed"))
				continue
			}
			if !t.decodeLine([]byte(line.Text)) {
				break
			}
		}
		t.logger.Debug("Trace finished")
	}()

	go func() {
		select {
		case <-ctx.Done():
			_ = t.Stop()
		case <-t.done:
		}
	}()
	return nil
}

// Stop ends the replay.
func (t *Trace) Stop() error {
	if t.requestStop() && t.tail != nil {
		_ = t.tail.Stop()
	}
	if t.tail == nil {
		return nil
	}
	<-t.done
	t.tail.Cleanup()
	return nil
}
