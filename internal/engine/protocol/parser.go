package protocol

import (
	"flowtagger/internal/model"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/gopacket/layers"
)

const (
	// MinFields is the number of whitespace separated fields a flow log line must carry.
	MinFields = 8

	dstPortField  = 6
	protocolField = 7
)

// Name resolves an IANA protocol number to the lowercase name used by the lookup table.
// Only icmp, tcp and udp are recognised.
func Name(number uint8) (string, bool) {
	switch layers.IPProtocol(number) {
	case layers.IPProtocolICMPv4:
		return "icmp", true
	case layers.IPProtocolTCP:
		return "tcp", true
	case layers.IPProtocolUDP:
		return "udp", true
	default:
		return "", false
	}
}

// IsKnown reports whether name is one of the protocol names Name can return.
func IsKnown(name string) bool {
	switch name {
	case "icmp", "tcp", "udp":
		return true
	}
	return false
}

// ParseLine extracts the destination port and protocol from a single flow log line.
// The returned error wraps model.ErrMalformedRecord or model.ErrUnknownProtocol.
func ParseLine(line string) (model.FlowRecord, error) {
	fields := strings.Fields(line)
	if len(fields) < MinFields {
		return model.FlowRecord{}, fmt.Errorf("%w: expected at least %d fields, got %d", model.ErrMalformedRecord, MinFields, len(fields))
	}

	port, err := strconv.ParseUint(fields[dstPortField], 10, 16)
	if err != nil {
		return model.FlowRecord{}, fmt.Errorf("%w: invalid destination port %q", model.ErrMalformedRecord, fields[dstPortField])
	}

	number, err := strconv.ParseUint(fields[protocolField], 10, 64)
	if err != nil {
		return model.FlowRecord{}, fmt.Errorf("%w: invalid protocol number %q", model.ErrMalformedRecord, fields[protocolField])
	}

	// Integers outside the IANA range are unknown protocols, not malformed lines.
	if number > math.MaxUint8 {
		return model.FlowRecord{}, fmt.Errorf("%w %d", model.ErrUnknownProtocol, number)
	}
	name, ok := Name(uint8(number))
	if !ok {
		return model.FlowRecord{}, fmt.Errorf("%w %d", model.ErrUnknownProtocol, number)
	}

	return model.FlowRecord{
		DstPort:        uint16(port),
		ProtocolNumber: uint8(number),
		Protocol:       name,
	}, nil
}
