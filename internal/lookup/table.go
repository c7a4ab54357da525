// Package lookup loads the (destination port, protocol) → tag table.
package lookup

import (
	"bufio"
	"errors"
	"flowtagger/internal/engine/protocol"
	"flowtagger/internal/model"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	fieldCount = 3

	// maxLineSize matches the flow log reader so long tags are accepted.
	maxLineSize = 1 << 20
)

// Table maps a port/protocol pair to its tag. It is read-only once loaded.
type Table struct {
	entries map[model.PortProtocol]string
}

// Load reads a lookup file of `dstport,protocol,tag` lines.
func Load(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, model.NewPathError(model.ErrNotFound, path, err)
		}
		return nil, fmt.Errorf("failed to open lookup file '%s': %w", path, err)
	}
	defer file.Close()

	return Parse(file, path)
}

// Parse reads lookup lines from r. name is used in errors and logs.
// A later line with the same port and protocol replaces the earlier tag.
func Parse(r io.Reader, name string) (*Table, error) {
	table := &Table{entries: make(map[model.PortProtocol]string)}
	logger := log.WithField("lookup", name)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		key, tag, err := parseEntry(line)
		if err != nil {
			return nil, &model.RecordError{Source: name, Line: lineNum, Text: line, Err: err}
		}

		if !protocol.IsKnown(key.Protocol) {
			logger.WithField("line", lineNum).Warnf("protocol '%s' is not icmp, tcp or udp; entry can never match", key.Protocol)
		}
		if prev, ok := table.entries[key]; ok && prev != tag {
			logger.WithField("line", lineNum).Debugf("tag for %d/%s overridden: '%s' -> '%s'", key.Port, key.Protocol, prev, tag)
		}
		table.entries[key] = tag
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lookup file '%s': %w", name, err)
	}

	logger.Debugf("Loaded %d lookup entries", len(table.entries))
	return table, nil
}

func parseEntry(line string) (model.PortProtocol, string, error) {
	fields := strings.Split(line, ",")
	if len(fields) != fieldCount {
		return model.PortProtocol{}, "", fmt.Errorf("%w: expected %d comma separated fields, got %d", model.ErrMalformedRecord, fieldCount, len(fields))
	}

	portField := strings.TrimSpace(fields[0])
	port, err := strconv.ParseUint(portField, 10, 16)
	if err != nil {
		return model.PortProtocol{}, "", fmt.Errorf("%w: invalid port %q", model.ErrMalformedRecord, portField)
	}

	key := model.PortProtocol{
		Port:     uint16(port),
		Protocol: strings.ToLower(strings.TrimSpace(fields[1])),
	}
	return key, strings.TrimSpace(fields[2]), nil
}

// New builds a table from entries, mainly for tests and embedding callers.
func New(entries map[model.PortProtocol]string) *Table {
	t := &Table{entries: make(map[model.PortProtocol]string, len(entries))}
	for k, v := range entries {
		k.Protocol = strings.ToLower(k.Protocol)
		t.entries[k] = v
	}
	return t
}

// Lookup returns the tag for port and protocol. The protocol name is matched case-insensitively.
func (t *Table) Lookup(port uint16, proto string) (string, bool) {
	tag, ok := t.entries[model.PortProtocol{Port: port, Protocol: strings.ToLower(proto)}]
	return tag, ok
}

// Len returns the number of distinct keys.
func (t *Table) Len() int {
	return len(t.entries)
}
