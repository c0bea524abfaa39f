// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"sync"
	"time"

	"filterplay/internal/fft"
	applog "filterplay/internal/log"
)

// Publisher periodically sends a StatusMessage and, when the spectrum has
// changed since the last tick, a SpectrumMessage over a Transport. It runs in
// its own goroutine managed by Start and Stop.
type Publisher struct {
	transport Transport
	status    StatusSource
	spectrum  SpectrumSource // May be nil.
	interval  time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	// Only touched by the publisher goroutine.
	magBuffer  []float64
	lastFrames uint64
}

// NewPublisher creates a publisher. spectrum may be nil to send status only.
// An interval <= 0 defaults to 100ms.
func NewPublisher(interval time.Duration, t Transport, status StatusSource, spectrum SpectrumSource) (*Publisher, error) {
	if t == nil {
		return nil, errors.New("publisher: transport cannot be nil")
	}
	if status == nil {
		return nil, errors.New("publisher: status source cannot be nil")
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
		applog.Warnf("Publisher: Invalid interval provided, defaulting to %s", interval)
	}

	p := &Publisher{
		transport: t,
		status:    status,
		spectrum:  spectrum,
		interval:  interval,
	}
	if spectrum != nil {
		p.magBuffer = make([]float64, spectrum.Bins())
	}
	return p, nil
}

// Start launches the publishing goroutine. Calling Start while running is a
// no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("Publisher: Start called but already running.")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}
	ticker, doneChan := p.ticker, p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Debugf("Publisher: Started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the goroutine to exit and waits for it. It is safe to call
// more than once.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Debugf("Publisher: Stopped.")
	return nil
}

func (p *Publisher) Close() error {
	return p.Stop()
}

// publish sends one round of messages.
func (p *Publisher) publish() {
	s := p.status.Status()
	if err := p.transport.Send(StatusMessage{Type: TypeStatus, Status: s, Clock: s.Clock()}); err != nil {
		applog.Debugf("Publisher: Error sending status: %v", err)
	}

	if p.spectrum == nil {
		return
	}
	frames, err := p.spectrum.MagnitudesInto(p.magBuffer)
	if err != nil {
		applog.Errorf("Publisher: Error getting magnitudes: %v", err)
		return
	}
	if frames == p.lastFrames {
		return
	}
	p.lastFrames = frames

	// The transport may hold on to the message, so it gets its own copies.
	mags := make([]float64, len(p.magBuffer))
	copy(mags, p.magBuffer)
	bands := fft.DefaultBands()
	fft.BandLevels(bands, mags, p.spectrum.FrequencyForBin)

	msg := SpectrumMessage{
		Type:       TypeSpectrum,
		SampleRate: p.spectrum.SampleRate(),
		BinHz:      p.spectrum.FrequencyForBin(1),
		Magnitudes: mags,
		Bands:      bands,
	}
	if err := p.transport.Send(msg); err != nil {
		applog.Debugf("Publisher: Error sending spectrum: %v", err)
	}
}
