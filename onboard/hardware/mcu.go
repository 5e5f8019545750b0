package hardware

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goburrow/serial"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	MCU_BAUD_RATE = 115200
	MCU_TIMEOUT   = 500 * time.Millisecond
)

// MCU is the microcontroller bridging PWM, GPIO and the distance sensor over a serial line.
//
// Outgoing lines:
//
//	P<pin> <freq> <duty>   run pwm on pin at duty percent
//	L<pin>                 force pwm pin fully low
//	G<pin> <0|1>           set gpio level
//
// Incoming lines:
//
//	B<pin> <0|1>           input pin level changed
//	R<d0> <d1> ...         raw infrared burst pulse durations in µs
//	D<fl> <fr> <bl> <br>   distance readings decoded on the MCU
type MCU struct {
	port io.ReadWriteCloser
	lock sync.Mutex
	log  *zap.SugaredLogger
}

// MCUHandlers receives decoded input from the MCU. Nil handlers drop the input.
type MCUHandlers struct {
	Button   func(pin int, high bool)
	Distance func(report DistanceReport)
}

func OpenMCU(address string, baudRate int, log *zap.SugaredLogger) (*MCU, error) {
	if baudRate == 0 {
		baudRate = MCU_BAUD_RATE
	}

	port, err := serial.Open(&serial.Config{
		Address:  address,
		BaudRate: baudRate,
		Timeout:  MCU_TIMEOUT,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open mcu on %s", address)
	}

	return NewMCU(port, log), nil
}

func NewMCU(port io.ReadWriteCloser, log *zap.SugaredLogger) *MCU {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &MCU{port: port, log: log}
}

func (m *MCU) Close() error {
	return m.port.Close()
}

func (m *MCU) send(format string, args ...interface{}) error {
	// format outside of the critical section
	buf := fmt.Sprintf(format, args...) + "\n"

	m.lock.Lock()
	defer m.lock.Unlock()
	_, err := m.port.Write([]byte(buf))
	return err
}

func (m *MCU) PWM(pin, freq int) PWMOutput {
	return &mcuPWM{mcu: m, pin: pin, freq: freq}
}

func (m *MCU) Pin(pin int) DigitalOutput {
	return &mcuPin{mcu: m, pin: pin}
}

// Listen reads lines from the MCU until ctx is done or the port fails. Read timeouts are not
// errors; they only give the loop a chance to notice cancellation.
func (m *MCU) Listen(ctx context.Context, h MCUHandlers) error {
	reader := bufio.NewReader(m.port)
	var pending string

	for {
		if ctx.Err() != nil {
			return nil
		}

		chunk, err := reader.ReadString('\n')
		pending += chunk
		if err != nil {
			if errors.Is(err, serial.ErrTimeout) {
				continue
			}
			return errors.Wrap(err, "mcu read failed")
		}

		m.dispatch(strings.TrimSpace(pending), h)
		pending = ""
	}
}

func (m *MCU) dispatch(line string, h MCUHandlers) {
	if len(line) < 2 {
		return
	}

	fields := strings.Fields(line[1:])
	switch line[0] {
	case 'B':
		if len(fields) != 2 || h.Button == nil {
			break
		}
		pin, err := strconv.Atoi(fields[0])
		if err != nil {
			m.log.Debugw("bad button line", "line", line)
			break
		}
		h.Button(pin, fields[1] == "1")

	case 'R':
		if h.Distance == nil {
			break
		}
		durations := make([]uint16, 0, len(fields))
		for _, f := range fields {
			d, err := strconv.ParseUint(f, 10, 16)
			if err != nil {
				m.log.Debugw("bad burst line", "line", line)
				return
			}
			durations = append(durations, uint16(d))
		}
		h.Distance(DecodeDistanceBurst(durations))

	case 'D':
		if len(fields) != DISTANCE_CHANNELS || h.Distance == nil {
			break
		}
		var values [DISTANCE_CHANNELS]uint8
		for i, f := range fields {
			v, err := strconv.ParseUint(f, 10, 8)
			if err != nil {
				m.log.Debugw("bad distance line", "line", line)
				return
			}
			values[i] = uint8(v)
		}
		h.Distance(DistanceReport{values[0], values[1], values[2], values[3]})

	default:
		m.log.Debugw("unknown mcu line", "line", line)
	}
}

type mcuPWM struct {
	mcu       *MCU
	pin, freq int
}

func (p *mcuPWM) SetDuty(duty float64) error {
	return p.mcu.send("P%d %d %.2f", p.pin, p.freq, duty)
}

func (p *mcuPWM) SetLow() error {
	return p.mcu.send("L%d", p.pin)
}

type mcuPin struct {
	mcu *MCU
	pin int
}

func (p *mcuPin) Set(high bool) error {
	level := 0
	if high {
		level = 1
	}
	return p.mcu.send("G%d %d", p.pin, level)
}
