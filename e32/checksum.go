package e32

import (
	"fmt"
	"hash/crc32"

	"github.com/sigurn/crc16"
)

// Checksum is the integrity function used by framed transfers. Both ends
// of a link must use the same one.
type Checksum interface {
	Name() string
	Sum(p []byte) uint32
}

type crc16Checksum struct {
	name  string
	table *crc16.Table
}

func (c crc16Checksum) Name() string { return c.name }

func (c crc16Checksum) Sum(p []byte) uint32 {
	return uint32(crc16.Checksum(p, c.table))
}

type crc32Checksum struct{}

func (crc32Checksum) Name() string { return "crc32" }

func (crc32Checksum) Sum(p []byte) uint32 { return crc32.ChecksumIEEE(p) }

var (
	// CRC16XMODEM is CRC-16/XMODEM (poly 0x1021, init 0), the checksum of
	// the deployed Python peers.
	CRC16XMODEM Checksum = crc16Checksum{name: "crc16-xmodem", table: crc16.MakeTable(crc16.CRC16_XMODEM)}
	// CRC32IEEE is the IEEE CRC-32 used by zlib.
	CRC32IEEE Checksum = crc32Checksum{}
)

// ChecksumByName resolves a configured checksum name.
func ChecksumByName(name string) (Checksum, error) {
	switch name {
	case "", CRC16XMODEM.Name():
		return CRC16XMODEM, nil
	case CRC32IEEE.Name():
		return CRC32IEEE, nil
	}
	return nil, fmt.Errorf("unknown checksum %q", name)
}
