// File: internal/podlog/streamer.go
// Brief: Follow-mode log reader for a single container.

package podlog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-logr/logr"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const logReaderSize = 64 * 1024

// streamer copies one container's log lines into the shared buffer.
type streamer struct {
	cluster   Cluster
	namespace string
	pod       string
	buf       *lineBuffer
	log       logr.Logger
}

// Stream follows the container's log until the connection closes. Invalid
// UTF-8 is replaced rather than rejected and lines have no length limit.
// prefix may be empty.
func (s *streamer) Stream(ctx context.Context, container, prefix string) error {
	s.log.V(1).Info("opening container log stream", "container", container)
	stream, err := s.cluster.StreamContainerLog(ctx, s.namespace, s.pod, container)
	if err != nil {
		return fmt.Errorf("open log stream for container %q: %w", container, err)
	}
	defer stream.Close()

	lead := ""
	if prefix != "" {
		lead = prefix + " "
	}
	reader := bufio.NewReaderSize(transform.NewReader(stream, unicode.UTF8.NewDecoder()), logReaderSize)
	lines := 0
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			s.buf.Append(lead + trimLineEnding(line))
			lines++
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read log stream for container %q: %w", container, err)
		}
	}
	s.log.V(1).Info("container log stream closed", "container", container, "lines", lines)
	return nil
}

func trimLineEnding(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
