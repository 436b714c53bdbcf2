package orderstream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/appetiteclub/orderdesk/pkg/event"
)

// SSEDialer connects to a text/event-stream endpoint.
type SSEDialer struct {
	URL    string
	Client *http.Client
}

func NewSSEDialer(url string) *SSEDialer {
	// No client timeout: the response body stays open for the whole session.
	return &SSEDialer{URL: url, Client: &http.Client{}}
}

func (d *SSEDialer) Dial(ctx context.Context) (Session, error) {
	if d.URL == "" {
		return nil, fmt.Errorf("sse: missing events url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("sse: build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sse: connect: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("sse: unexpected status %d", resp.StatusCode)
	}

	return &sseSession{body: resp.Body, reader: bufio.NewReader(resp.Body)}, nil
}

type sseSession struct {
	body   io.ReadCloser
	reader *bufio.Reader
}

// Recv reads frames until one carries data. Comments, ids and retry hints
// are skipped.
func (s *sseSession) Recv(ctx context.Context) (event.Event, error) {
	var (
		name string
		data []string
	)

	for {
		if err := ctx.Err(); err != nil {
			return event.Event{}, err
		}

		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF && line == "" {
				return event.Event{}, io.EOF
			}
			if err != io.EOF {
				return event.Event{}, err
			}
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if len(data) > 0 {
				if name == "" {
					name = "message"
				}
				return event.Event{Name: name, Data: []byte(strings.Join(data, "\n"))}, nil
			}
			name = ""
			if err == io.EOF {
				return event.Event{}, io.EOF
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			name = value
		case "data":
			data = append(data, value)
		}
	}
}

func (s *sseSession) Close() error {
	return s.body.Close()
}
