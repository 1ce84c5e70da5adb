package metadata

import (
	"fmt"
	"io"
	"strings"
)

const (
	headerText  = "Start Program Meta-Data Code:"
	trailerText = "End Program Meta-Data Code."
)

// DeviceTimer resolves the per-cycle device time for a meta-data
// code/descriptor pair. config.Config satisfies this.
type DeviceTimer interface {
	DeviceTimeFor(code byte, descriptor string) (int, error)
}

// Parse converts a meta-data byte stream into an ordered sequence of
// Instruction with TotalMs resolved via timer. Any syntactic deviation
// aborts parsing and returns an error wrapping one of the sentinels in
// errors.go; no partial sequence is ever returned.
func Parse(r io.Reader, timer DeviceTimer) ([]Instruction, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("metadata: reading: %w", err)
	}

	body := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(body, headerText) {
		return nil, fmt.Errorf("%w: stream does not start with %q", ErrUnexpectedHeader, headerText)
	}
	if !strings.HasSuffix(body, trailerText) {
		return nil, fmt.Errorf("%w: stream does not end with %q", ErrUnexpectedTrailer, trailerText)
	}

	tokenRegion := body[len(headerText) : len(body)-len(trailerText)]

	s := &tokenScanner{src: tokenRegion}
	var instructions []Instruction
	for {
		s.skipSpace()
		if s.atEnd() {
			break
		}

		tok, last, err := s.next()
		if err != nil {
			return nil, err
		}

		totalMs, err := timer.DeviceTimeFor(byte(tok.code), tok.descriptor)
		if err != nil {
			return nil, fmt.Errorf("metadata: resolving device time: %w", err)
		}

		instructions = append(instructions, Instruction{
			Code:       tok.code,
			Descriptor: tok.descriptor,
			Cycles:     tok.cycles,
			TotalMs:    totalMs * tok.cycles,
		})

		if last {
			s.skipSpace()
			if !s.atEnd() {
				return nil, fmt.Errorf("%w: tokens follow the final '.' terminator", ErrUnexpectedTrailer)
			}
			break
		}
	}

	return instructions, nil
}

type token struct {
	code       Code
	descriptor string
	cycles     int
}

// tokenScanner reads <C>{<descriptor>}<cycles><;|.> tokens one at a time
// out of the raw token region. Scanning stops at '}' rather than
// whitespace so the one two-word descriptor ("hard drive") is read
// correctly without special-casing it ahead of time.
type tokenScanner struct {
	src string
	pos int
}

func (s *tokenScanner) atEnd() bool { return s.pos >= len(s.src) }

func (s *tokenScanner) skipSpace() {
	for s.pos < len(s.src) && isSpace(s.src[s.pos]) {
		s.pos++
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func (s *tokenScanner) next() (token, bool, error) {
	code := Code(s.src[s.pos])
	if !isValidCode(code) {
		return token{}, false, fmt.Errorf("%w: %q", ErrUnknownCode, string(code))
	}
	s.pos++

	if s.atEnd() || s.src[s.pos] != '{' {
		return token{}, false, fmt.Errorf("%w: expected '{' after code %q", ErrUnknownCode, string(code))
	}
	s.pos++

	descStart := s.pos
	for !s.atEnd() && s.src[s.pos] != '}' {
		s.pos++
	}
	if s.atEnd() {
		return token{}, false, fmt.Errorf("%w: unterminated descriptor", ErrUnknownDescriptor)
	}
	descriptor := s.src[descStart:s.pos]
	s.pos++ // consume '}'

	if !validDescriptor(code, descriptor) {
		return token{}, false, fmt.Errorf("%w: %q for code %q", ErrUnknownDescriptor, descriptor, string(code))
	}

	cyclesStart := s.pos
	for !s.atEnd() && isDigit(s.src[s.pos]) {
		s.pos++
	}
	if s.pos == cyclesStart {
		return token{}, false, fmt.Errorf("%w: missing cycle count", ErrMissingTerminator)
	}
	cyclesStr := s.src[cyclesStart:s.pos]

	if s.atEnd() {
		return token{}, false, fmt.Errorf("%w: stream ended before terminator", ErrMissingTerminator)
	}
	term := s.src[s.pos]
	if term != ';' && term != '.' {
		return token{}, false, fmt.Errorf("%w: got %q", ErrMissingTerminator, string(term))
	}
	s.pos++

	cycles := 0
	for _, c := range cyclesStr {
		cycles = cycles*10 + int(c-'0')
	}
	if len(cyclesStr) > 2 || cycles > 99 || cycles < 0 {
		return token{}, false, fmt.Errorf("%w: %s", ErrCyclesOutOfRange, cyclesStr)
	}

	return token{code: code, descriptor: descriptor, cycles: cycles}, term == '.', nil
}

func isValidCode(c Code) bool {
	switch c {
	case System, Application, Processor, Memory, Input, Output:
		return true
	default:
		return false
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
