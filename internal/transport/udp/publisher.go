// SPDX-License-Identifier: MIT

// Package udp streams compact binary status and spectrum packets to a UDP
// listener, for visualizers that prefer datagrams over WebSocket JSON.
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"time"

	applog "filterplay/internal/log"
	"filterplay/internal/transport"
)

/*
Packet layout (BigEndian):

	| Field           | Type      | Bytes | Description                  |
	|-----------------|-----------|-------|------------------------------|
	| Sequence Number | uint32    | 4     | Monotonically increasing     |
	| Timestamp       | int64     | 8     | Nanoseconds since epoch      |
	| State           | uint8     | 1     | Transport state (audio.State) |
	| Position        | float32   | 4     | Fraction of the waveform     |
	| Peak            | float32   | 4     | Last block peak amplitude    |
	| Magnitude Count | uint16    | 2     | Number of floats (N)         |
	| Magnitudes      | []float32 | N * 4 | Spectrum, N = 0 without one  |
*/

// HeaderSize is the packet size without magnitudes.
const HeaderSize = 4 + 8 + 1 + 4 + 4 + 2

// Header is the decoded fixed part of a packet.
type Header struct {
	Sequence  uint32
	Timestamp int64
	State     uint8
	Position  float32
	Peak      float32
	Count     uint16
}

// Publisher periodically packs status and spectrum into a packet and sends
// it with a Sender.
type Publisher struct {
	sender   *Sender
	status   transport.StatusSource
	spectrum transport.SpectrumSource // May be nil.
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	sequenceNum uint32

	// Reused by buildPacket.
	magBuffer    []float64
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewPublisher creates a publisher. An interval <= 0 defaults to 16ms
// (~60Hz).
func NewPublisher(interval time.Duration, sender *Sender, status transport.StatusSource, spectrum transport.SpectrumSource) (*Publisher, error) {
	if sender == nil {
		return nil, errors.New("UDP publisher: sender cannot be nil")
	}
	if status == nil {
		return nil, errors.New("UDP publisher: status source cannot be nil")
	}
	if interval <= 0 {
		interval = 16 * time.Millisecond
		applog.Warnf("UDP Publisher: Invalid interval provided, defaulting to %s", interval)
	}

	bins := 0
	if spectrum != nil {
		bins = spectrum.Bins()
	}
	applog.Infof("UDP Publisher: Initializing (Interval: %s, FFT Bins: %d)", interval, bins)

	return &Publisher{
		sender:       sender,
		status:       status,
		spectrum:     spectrum,
		interval:     interval,
		magBuffer:    make([]float64, bins),
		f32Buffer:    make([]float32, bins),
		packetBuffer: bytes.NewBuffer(make([]byte, 0, HeaderSize+4*bins)),
	}, nil
}

// Start launches the publishing goroutine; a second call is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDP Publisher: Start called but already running.")
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
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop ends the goroutine and waits for it. Safe to call more than once.
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
	applog.Debugf("UDP Publisher: Stopped.")
	return nil
}

func (p *Publisher) Close() error {
	return p.Stop()
}

func (p *Publisher) buildAndSendPacket() {
	packet, err := p.buildPacket(time.Now())
	if err != nil {
		applog.Errorf("UDP Publisher: %v", err)
		return
	}
	if err := p.sender.Send(packet); err == nil {
		applog.Debugf("UDP Publisher: Sent packet %d (%d bytes)", p.sequenceNum, len(packet))
	}
}

// buildPacket packs the current status and spectrum. The returned slice is
// reused by the next call.
func (p *Publisher) buildPacket(now time.Time) ([]byte, error) {
	s := p.status.Status()

	if p.spectrum != nil {
		if _, err := p.spectrum.MagnitudesInto(p.magBuffer); err != nil {
			return nil, err
		}
		for i, v := range p.magBuffer {
			p.f32Buffer[i] = float32(v)
		}
	}

	p.sequenceNum++
	h := Header{
		Sequence:  p.sequenceNum,
		Timestamp: now.UnixNano(),
		State:     uint8(s.State),
		Position:  float32(s.Position),
		Peak:      s.Peak,
		Count:     uint16(len(p.f32Buffer)),
	}

	p.packetBuffer.Reset()
	if err := binary.Write(p.packetBuffer, binary.BigEndian, h); err != nil {
		return nil, err
	}
	if err := binary.Write(p.packetBuffer, binary.BigEndian, p.f32Buffer); err != nil {
		return nil, err
	}
	return p.packetBuffer.Bytes(), nil
}

// DecodePacket parses a packet produced by Publisher.
func DecodePacket(b []byte) (Header, []float32, error) {
	var h Header
	if len(b) < HeaderSize {
		return h, nil, errors.New("short packet")
	}
	h.Sequence = binary.BigEndian.Uint32(b[0:])
	h.Timestamp = int64(binary.BigEndian.Uint64(b[4:]))
	h.State = b[12]
	h.Position = math.Float32frombits(binary.BigEndian.Uint32(b[13:]))
	h.Peak = math.Float32frombits(binary.BigEndian.Uint32(b[17:]))
	h.Count = binary.BigEndian.Uint16(b[21:])

	if len(b) != HeaderSize+4*int(h.Count) {
		return h, nil, errors.New("packet length does not match magnitude count")
	}
	mags := make([]float32, h.Count)
	for i := range mags {
		mags[i] = math.Float32frombits(binary.BigEndian.Uint32(b[HeaderSize+4*i:]))
	}
	return h, mags, nil
}
