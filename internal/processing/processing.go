package processing

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync"
	"time"
	"unsafe"

	"go.uber.org/zap"
)

const DEFAULT_QUEUE_SIZE = 20

// DataPacket is the frame the sensor firmware sends, envelope and baseline are computed on the board
type DataPacket struct {
	PacketNumber    uint32
	TimestampMicros uint32
	Raw             uint16
	PulseCount      uint16
	Envelope        float32
	Baseline        float32
	Threshold       float32
}

const PacketSize = unsafe.Sizeof(DataPacket{})

var StopSequence = [2]byte{'\r', '\n'}

// RawPacketSize is a packet plus its stop sequence as it arrives on the wire
const RawPacketSize = int(PacketSize) + len(StopSequence)

// Batch is everything decoded since the last flush
type Batch struct {
	Time       []float64
	Raw        []int
	Envelope   []float64
	Threshold  float64
	Baseline   float64
	PulseCount int
}

func (b *Batch) Len() int {
	return len(b.Raw)
}

// ProcessorStats are lifetime counters, readable from any goroutine
type ProcessorStats struct {
	SampleCount    int
	DroppedPackets int
	Baseline       float64
	Envelope       float64
}

type Processor struct {
	MessageQueue <-chan []byte
	Batches      chan<- Batch
	logger       *zap.Logger
	emitInterval time.Duration

	batch       Batch
	havePrev    bool
	prevNumber  uint32
	prevMicros  uint32
	elapsedSecs float64

	statsMutex sync.Mutex
	stats      ProcessorStats
}

func NewProcessor(messageQueue <-chan []byte, batches chan<- Batch, emitInterval time.Duration, logger *zap.Logger) *Processor {
	return &Processor{
		MessageQueue: messageQueue,
		Batches:      batches,
		logger:       logger,
		emitInterval: emitInterval,
	}
}

// Run decodes packets until the queue closes or ctx is cancelled, flushing a batch every emit interval.
// The batch channel is closed on return.
func (p *Processor) Run(ctx context.Context) {
	defer close(p.Batches)

	ticker := time.NewTicker(p.emitInterval)
	defer ticker.Stop()

	for {
		select {
		case packet, ok := <-p.MessageQueue:
			if !ok {
				p.logger.Info("[processor] message queue closed")
				p.flush(ctx)
				return
			}

			if err := p.ProcessPacket(packet); err != nil {
				p.logger.Warn(
					"[processor] error decoding byte packet",
					zap.Error(err),
					zap.Int("packetLength", len(packet)),
					zap.ByteString("rawBytes", packet),
				)
			}
		case <-ticker.C:
			p.flush(ctx)
		case <-ctx.Done():
			p.logger.Info("[processor] received shutdown signal")
			return
		}
	}
}

func (p *Processor) ProcessPacket(packet []byte) error {
	var decoded DataPacket
	if err := binary.Read(bytes.NewReader(packet), binary.LittleEndian, &decoded); err != nil {
		return err
	}

	if p.havePrev && decoded.PacketNumber <= p.prevNumber {
		// firmware restarted behind an open port, its clocks start over
		p.logger.Warn(
			"[processor] packet number went backwards, assuming firmware restart",
			zap.Uint32("previous", p.prevNumber),
			zap.Uint32("received", decoded.PacketNumber),
		)
		p.havePrev = false
	}

	if p.havePrev {
		if gap := decoded.PacketNumber - p.prevNumber - 1; gap != 0 {
			p.logger.Warn(
				"[processor] packet number gap",
				zap.Uint32("expected", p.prevNumber+1),
				zap.Uint32("received", decoded.PacketNumber),
			)
			p.statsMutex.Lock()
			p.stats.DroppedPackets += int(gap)
			p.statsMutex.Unlock()
		}
		// uint32 subtraction keeps working across the board clock wrapping
		p.elapsedSecs += float64(decoded.TimestampMicros-p.prevMicros) / 1e6
	}
	p.havePrev = true
	p.prevNumber = decoded.PacketNumber
	p.prevMicros = decoded.TimestampMicros

	p.batch.Time = append(p.batch.Time, p.elapsedSecs)
	p.batch.Raw = append(p.batch.Raw, int(decoded.Raw))
	p.batch.Envelope = append(p.batch.Envelope, float64(decoded.Envelope))
	p.batch.Threshold = float64(decoded.Threshold)
	p.batch.Baseline = float64(decoded.Baseline)
	p.batch.PulseCount = int(decoded.PulseCount)

	p.statsMutex.Lock()
	p.stats.SampleCount++
	p.stats.Baseline = float64(decoded.Baseline)
	p.stats.Envelope = float64(decoded.Envelope)
	p.statsMutex.Unlock()

	return nil
}

func (p *Processor) flush(ctx context.Context) {
	if p.batch.Len() == 0 {
		return
	}

	select {
	case p.Batches <- p.batch:
	case <-ctx.Done():
	}
	p.batch = Batch{}
}

func (p *Processor) Stats() ProcessorStats {
	p.statsMutex.Lock()
	defer p.statsMutex.Unlock()

	return p.stats
}
