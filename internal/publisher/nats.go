package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"busboard/internal/board"
)

type NATSPublisher struct {
	nc      *nats.Conn
	subject string
	metrics PublisherMetrics
	logger  *slog.Logger
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	NATSSetConnected(connected bool)
}

// NewNATSPublisher connects to url. Frames go to "<subject>.<stop>".
func NewNATSPublisher(url, subject string, m PublisherMetrics, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name("busboard"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			if err != nil {
				logger.Warn("nats disconnected", "error", err.Error())
				return
			}
			logger.Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			logger.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, subject: subject, metrics: m, logger: logger}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc.Close()
	}
}

func (p *NATSPublisher) Name() string { return "nats" }

// FrameMessage is the JSON payload published for every new frame.
type FrameMessage struct {
	Stop       int       `json:"stop"`
	Lines      []string  `json:"lines"`
	Text       string    `json:"text"`
	RenderedAt time.Time `json:"renderedAt"`
}

func newFrameMessage(f board.Frame) FrameMessage {
	return FrameMessage{Stop: f.Stop, Lines: f.Lines, Text: f.Text(), RenderedAt: f.RenderedAt}
}

// Show publishes the frame. The context is unused; core NATS publish is
// buffered and does not block on the server.
func (p *NATSPublisher) Show(_ context.Context, f board.Frame) error {
	subject := frameSubject(p.subject, f.Stop)
	b, err := json.Marshal(newFrameMessage(f))
	if err != nil {
		return err
	}
	p.logger.Debug("nats publish", "subject", subject)
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	if err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

func frameSubject(prefix string, stop int) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = "busboard"
	}
	return prefix + "." + subjectToken(strconv.Itoa(stop))
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
