// r in rserial stands for "robust"
package rserial

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// Port is the part of serial.Port the reader needs
type Port interface {
	io.ReadCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

type rserial struct {
	Port
	MessageQueue  chan<- []byte // channels are all implicitly passed as pointers
	tempBuff      []byte
	logger        *zap.Logger
	portName      string
	stopSequence  []byte
	rawPacketSize int
}

type OutOfSyncError struct {
	ByteSequence []byte
}

func (e *OutOfSyncError) Error() string {
	return fmt.Sprintf("[rserial] incorrect stop sequence detected: %v", e.ByteSequence)
}

func Open(portName string, baudrate int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baudrate,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", portName, err)
	}
	return port, nil
}

func NewRSerial(port Port, portName string, messageQueue chan<- []byte, logger *zap.Logger, rawPacketSize int, stopSequence []byte) *rserial {
	return &rserial{
		Port:          port,
		MessageQueue:  messageQueue,
		tempBuff:      make([]byte, rawPacketSize),
		logger:        logger,
		portName:      portName,
		stopSequence:  stopSequence,
		rawPacketSize: rawPacketSize,
	}
}

func (r *rserial) initialize(ctx context.Context) error {
	if err := r.SetReadTimeout(5 * time.Millisecond); err != nil {
		return err
	}
	if err := r.ResetInputBuffer(); err != nil {
		return err
	}
	return r.sync(ctx)
}

// Run reads packets until ctx is cancelled or the port fails, then closes the message queue
func (r *rserial) Run(ctx context.Context) error {
	defer close(r.MessageQueue)

	if err := r.initialize(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("[rserial] exiting from rserial read loop", zap.String("portName", r.portName))
			return nil
		default:
		}

		err := r.ReadPacket(ctx)
		if err == nil {
			continue
		}

		var oosError *OutOfSyncError
		switch {
		case errors.As(err, &oosError):
			r.logger.Warn("[rserial] error while attempting to read packet from serial", zap.Error(err), zap.String("portName", r.portName), zap.ByteString("payload", oosError.ByteSequence))
			if err := r.sync(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
		case errors.Is(err, context.Canceled):
			return nil
		default:
			return fmt.Errorf("[rserial] reading %s: %w", r.portName, err)
		}
	}
}

func (r *rserial) ReadPacket(ctx context.Context) error {
	count := 0
	for count < r.rawPacketSize {
		// a read timeout returns n == 0 so the loop can notice shutdown
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, err := r.Read(r.tempBuff[count:])
		if err != nil {
			return err
		}
		count += n
	}

	// validate that the packet is valid by checking the last characters of the packet
	if !bytes.Equal(r.tempBuff[r.rawPacketSize-len(r.stopSequence):], r.stopSequence) {
		byteSequenceCopy := make([]byte, r.rawPacketSize)
		copy(byteSequenceCopy, r.tempBuff)

		return &OutOfSyncError{
			ByteSequence: byteSequenceCopy,
		}
	}

	packet := make([]byte, r.rawPacketSize)
	copy(packet, r.tempBuff)

	select {
	case r.MessageQueue <- packet:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// sync discards bytes up to and including the next stop sequence terminator
func (r *rserial) sync(ctx context.Context) error {
	r.logger.Warn("[rserial] resyncing serial port", zap.String("portName", r.portName))
	onebyte := make([]byte, 1)
	last := r.stopSequence[len(r.stopSequence)-1]

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, err := r.Read(onebyte)
		if err != nil {
			return fmt.Errorf("[rserial] resyncing %s: %w", r.portName, err)
		}
		if n == 1 && onebyte[0] == last {
			return nil
		}
	}
}
