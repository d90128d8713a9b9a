package source

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/grovetools/notify/errors"
)

// Lines reads inotifywait output from an arbitrary reader, such as stdin
// fed by a pipeline.
type Lines struct {
	stream
	r io.Reader
}

// NewLines creates a source over r.
func NewLines(r io.Reader, bufferSize int) *Lines {
	return &Lines{stream: newStream(bufferSize, nil), r: r}
}

// Start begins reading. EOF finishes the source without an error.
func (l *Lines) Start(ctx context.Context) error {
	l.markReady()
	go func() {
		scanner := bufio.NewScanner(l.r)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)
		var err error
		for scanner.Scan() {
			if !l.decodeLine(scanner.Bytes()) {
				break
			}
		}
		if scanErr := scanner.Err(); scanErr != nil && !l.stopRequested() {
			err = errors.Wrap(scanErr, errors.ErrCodeSourceStderr, "failed reading input")
			l.report(err)
		}
		l.finish(err)
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = l.Stop()
		case <-l.done:
		}
	}()
	return nil
}

// Stop abandons the reader. A blocked Read is only interrupted when the
// reader is also an io.Closer; otherwise Stop returns without waiting.
func (l *Lines) Stop() error {
	l.requestStop()
	c, ok := l.r.(io.Closer)
	if !ok {
		return nil
	}
	_ = c.Close()
	// Closing a terminal stdin does not always unblock a pending Read.
	select {
	case <-l.done:
	case <-time.After(time.Second):
	}
	return nil
}
