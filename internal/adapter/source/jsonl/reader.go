// Package jsonl reads recorded generation calls from JSON Lines files,
// one call per line.
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bkyoung/ragmeter/internal/usecase/meter"
)

// Maximum accepted line length. Provider responses with large prompts can
// run long, so this is generous.
const maxLineBytes = 16 * 1024 * 1024

// Reader loads raw calls from JSONL input.
type Reader struct{}

// NewReader constructs a Reader.
func NewReader() *Reader {
	return &Reader{}
}

// ReadFile reads every call record from the file at path.
func (r *Reader) ReadFile(path string) ([]meter.RawCall, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	calls, err := r.Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return calls, nil
}

// Read decodes call records from in. Blank lines are skipped; a line
// that fails to decode aborts the read with its line number.
func (r *Reader) Read(in io.Reader) ([]meter.RawCall, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var calls []meter.RawCall
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var call meter.RawCall
		if err := json.Unmarshal([]byte(text), &call); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if call.Provider == "" {
			return nil, fmt.Errorf("line %d: missing provider", line)
		}
		call.Line = line
		calls = append(calls, call)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return calls, nil
}
