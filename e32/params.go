package e32

import (
	"context"
	"fmt"

	"github.com/mbalug7/lora-e32/hal"
)

const (
	headSave      byte = 0xC0
	headTemporary byte = 0xC2

	cmdReadConfig  byte = 0xC1
	cmdReadVersion byte = 0xC3
	cmdReset       byte = 0xC4

	configFrameLen = 6

	// BaseFrequencyMHz is the frequency of channel 0 on 433 MHz band modules.
	BaseFrequencyMHz = 410
)

type baudRate byte
type parity byte
type airDataRate byte
type transmitPower byte
type wakeUpTime byte
type transmissionMethod byte

// SPED bits 7..6
const (
	PARITY_8N1 parity = 0
	PARITY_8O1 parity = 1
	PARITY_8E1 parity = 2
)

// SPED bits 5..3
const (
	BAUD_1200 baudRate = iota
	BAUD_2400
	BAUD_4800
	BAUD_9600
	BAUD_19200
	BAUD_38400
	BAUD_57600
	BAUD_115200
)

// SPED bits 2..0
const (
	ADR_300 airDataRate = iota
	ADR_1200
	ADR_2400
	ADR_4800
	ADR_9600
	ADR_19200
)

// OPTION bits 1..0
const (
	POWER_20 transmitPower = iota
	POWER_17
	POWER_14
	POWER_10
)

// OPTION bits 5..3, wake-up time 250ms * (n+1)
const (
	WAKE_UP_250 wakeUpTime = iota
	WAKE_UP_500
	WAKE_UP_750
	WAKE_UP_1000
	WAKE_UP_1250
	WAKE_UP_1500
	WAKE_UP_1750
	WAKE_UP_2000
)

// OPTION bit 7
const (
	TRANSMISSION_TRANSPARENT transmissionMethod = 0
	TRANSMISSION_FIXED       transmissionMethod = 1
)

var serialBaudMap = map[baudRate]int{
	BAUD_1200:   1200,
	BAUD_2400:   2400,
	BAUD_4800:   4800,
	BAUD_9600:   9600,
	BAUD_19200:  19200,
	BAUD_38400:  38400,
	BAUD_57600:  57600,
	BAUD_115200: 115200,
}

var serialParityMap = map[parity]hal.Parity{
	PARITY_8N1: hal.ParityNone,
	PARITY_8O1: hal.ParityOdd,
	PARITY_8E1: hal.ParityEven,
}

var airDataRateMap = map[airDataRate]int{
	ADR_300:   300,
	ADR_1200:  1200,
	ADR_2400:  2400,
	ADR_4800:  4800,
	ADR_9600:  9600,
	ADR_19200: 19200,
}

var powerMap = [4]int{20, 17, 14, 10}

// ConfigFrame is the 6 byte parameter block written with the 0xC0/0xC2
// command and echoed back by 0xC1 C1 C1.
type ConfigFrame struct {
	Head     byte
	AddrHigh byte
	AddrLow  byte
	Speed    byte
	Channel  byte
	Options  byte
}

// DefaultConfigFrame is C0 00 00 1A 0F 47: address 0, 9600 8N1, 2.4k air
// rate, 425 MHz, push-pull IO, FEC on, 10 dBm.
func DefaultConfigFrame() ConfigFrame {
	return ConfigFrame{
		Head:     headSave,
		AddrHigh: 0x00,
		AddrLow:  0x00,
		Speed:    0x1A,
		Channel:  0x0F,
		Options:  0x47,
	}
}

// ParseConfigFrame decodes a readback. Only the length is checked; the
// head byte is kept as received.
func ParseConfigFrame(data []byte) (ConfigFrame, error) {
	if len(data) != configFrameLen {
		return ConfigFrame{}, fmt.Errorf("%w: config frame needs %d bytes, got %d (% X)",
			ErrShortResponse, configFrameLen, len(data), data)
	}
	return ConfigFrame{
		Head:     data[0],
		AddrHigh: data[1],
		AddrLow:  data[2],
		Speed:    data[3],
		Channel:  data[4],
		Options:  data[5],
	}, nil
}

func (f ConfigFrame) Bytes() []byte {
	return []byte{f.Head, f.AddrHigh, f.AddrLow, f.Speed, f.Channel, f.Options}
}

func (f ConfigFrame) Address() uint16 {
	return uint16(f.AddrHigh)<<8 | uint16(f.AddrLow)
}

// Temporary reports whether the frame is written without saving to flash.
func (f ConfigFrame) Temporary() bool { return f.Head == headTemporary }

func (f ConfigFrame) Baud() int {
	return serialBaudMap[baudRate((f.Speed>>3)&0x07)]
}

func (f ConfigFrame) Parity() hal.Parity {
	p, ok := serialParityMap[parity(f.Speed>>6)]
	if !ok {
		// 11 is documented as 8N1
		return hal.ParityNone
	}
	return p
}

func (f ConfigFrame) AirDataRate() int {
	r, ok := airDataRateMap[airDataRate(f.Speed&0x07)]
	if !ok {
		return 19200
	}
	return r
}

func (f ConfigFrame) FrequencyMHz() int { return BaseFrequencyMHz + int(f.Channel) }

func (f ConfigFrame) FixedTransmission() bool { return f.Options&0x80 != 0 }

func (f ConfigFrame) PushPull() bool { return f.Options&0x40 != 0 }

func (f ConfigFrame) WakeUpMillis() int { return 250 * (int((f.Options>>3)&0x07) + 1) }

func (f ConfigFrame) FEC() bool { return f.Options&0x04 != 0 }

func (f ConfigFrame) PowerDBm() int { return powerMap[f.Options&0x03] }

func (f ConfigFrame) String() string {
	return fmt.Sprintf("ADDR: 0x%04X CHAN: %d (%d MHz) UART: %d 8%c1 AIR: %d bps POWER: %d dBm FIXED: %t FEC: %t WAKE-UP: %d ms [% X]",
		f.Address(), f.Channel, f.FrequencyMHz(), f.Baud(), f.Parity(), f.AirDataRate(),
		f.PowerDBm(), f.FixedTransmission(), f.FEC(), f.WakeUpMillis(), f.Bytes())
}

// Version is the module's answer to C3 C3 C3.
type Version struct {
	Model    byte // frequency band, 0x32 for 433 MHz
	Number   byte
	Features byte
	Raw      []byte
}

func ParseVersion(data []byte) (Version, error) {
	if len(data) < 4 || data[0] != cmdReadVersion {
		return Version{}, fmt.Errorf("%w: version needs C3 and 3 bytes, got % X", ErrShortResponse, data)
	}
	return Version{Model: data[1], Number: data[2], Features: data[3], Raw: data}, nil
}

func (v Version) String() string {
	return fmt.Sprintf("MODEL: 0x%02X VERSION: 0x%02X FEATURES: 0x%02X", v.Model, v.Number, v.Features)
}

// ConfigBuilder stages changes on top of the configuration the driver last
// confirmed, or DefaultConfigFrame when nothing was confirmed yet, and writes
// them with a single handshake.
type ConfigBuilder struct {
	module *Driver
	frame  ConfigFrame
}

func NewConfigBuilder(module *Driver) *ConfigBuilder {
	module.mu.Lock()
	frame := module.frame
	module.mu.Unlock()
	if frame.Head == 0 {
		frame = DefaultConfigFrame()
	}
	return &ConfigBuilder{module: module, frame: frame}
}

func (obj *ConfigBuilder) Address(high, low byte) *ConfigBuilder {
	obj.frame.AddrHigh, obj.frame.AddrLow = high, low
	return obj
}

func (obj *ConfigBuilder) Channel(ch byte) *ConfigBuilder {
	obj.frame.Channel = ch
	return obj
}

func (obj *ConfigBuilder) ParityBit(p parity) *ConfigBuilder {
	obj.frame.Speed = obj.frame.Speed&^0xC0 | byte(p&0x03)<<6
	return obj
}

func (obj *ConfigBuilder) BaudRate(b baudRate) *ConfigBuilder {
	obj.frame.Speed = obj.frame.Speed&^0x38 | byte(b&0x07)<<3
	return obj
}

func (obj *ConfigBuilder) AirDataRate(r airDataRate) *ConfigBuilder {
	obj.frame.Speed = obj.frame.Speed&^0x07 | byte(r&0x07)
	return obj
}

func (obj *ConfigBuilder) TransmissionMethod(m transmissionMethod) *ConfigBuilder {
	obj.frame.Options = obj.frame.Options&^0x80 | byte(m&0x01)<<7
	return obj
}

func (obj *ConfigBuilder) WakeUpTime(w wakeUpTime) *ConfigBuilder {
	obj.frame.Options = obj.frame.Options&^0x38 | byte(w&0x07)<<3
	return obj
}

func (obj *ConfigBuilder) FEC(enabled bool) *ConfigBuilder {
	obj.frame.Options &^= 0x04
	if enabled {
		obj.frame.Options |= 0x04
	}
	return obj
}

func (obj *ConfigBuilder) Power(p transmitPower) *ConfigBuilder {
	obj.frame.Options = obj.frame.Options&^0x03 | byte(p&0x03)
	return obj
}

// Frame returns the staged frame without writing it.
func (obj *ConfigBuilder) Frame() ConfigFrame { return obj.frame }

// WritePermanentConfig writes the staged frame with 0xC0 (saved to flash).
func (obj *ConfigBuilder) WritePermanentConfig(ctx context.Context) (ConfigFrame, error) {
	obj.frame.Head = headSave
	return obj.module.ConfigureFrame(ctx, obj.frame)
}

// WriteTemporaryConfig writes the staged frame with 0xC2 (lost on power off).
func (obj *ConfigBuilder) WriteTemporaryConfig(ctx context.Context) (ConfigFrame, error) {
	obj.frame.Head = headTemporary
	return obj.module.ConfigureFrame(ctx, obj.frame)
}
