package usecase

import (
	"context"

	"ElemPulse/internal/domain/models"
	drepo "ElemPulse/internal/domain/repository"
	mid "ElemPulse/internal/middleware"
)

// TelemetryCollector collects observations from the telemetry stream and
// processes them.
type TelemetryCollector struct {
	stream  drepo.TelemetryStream
	proc    *TelemetryProcessor
	metrics drepo.Metrics
	pipe    *mid.IngestPipeline
}

// NewTelemetryCollector creates a new TelemetryCollector instance.
func NewTelemetryCollector(stream drepo.TelemetryStream, proc *TelemetryProcessor, metrics drepo.Metrics, pipe *mid.IngestPipeline) *TelemetryCollector {
	return &TelemetryCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the telemetry stream is connected.
func (c *TelemetryCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *TelemetryCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	recCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, recCh, errCh)
	return nil
}

func (c *TelemetryCollector) consume(ctx context.Context, recCh <-chan *models.TelemetryRecord, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case rec := <-recCh:
			if rec == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, rec)
			} else {
				_ = c.proc.Process(ctx, rec)
			}
		}
	}
}

func (c *TelemetryCollector) Stop() error { return c.stream.Close() }

// Processor returns the underlying TelemetryProcessor for lifecycle management.
func (c *TelemetryCollector) Processor() *TelemetryProcessor { return c.proc }

// Shutdown stops pipeline and closes stream.
func (c *TelemetryCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
