package protocol

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmckenna-gumgum/component-builder/internal/errors"
)

type lexState int

const (
	stateDefault lexState = iota
	stateString
	stateBacktick
	stateLineComment
	stateBlockComment
)

// normalizer is a single pass over the payload. It copies bytes to out,
// dropping comments and trailing commas and re-encoding backtick literals.
// Multi-byte UTF-8 sequences never contain ASCII delimiter bytes, so working
// on bytes is safe.
type normalizer struct {
	src   []byte
	out   []byte
	state lexState
	// lastSig is the index in out of the last non-whitespace byte, or -1.
	lastSig  int
	backtick []byte
}

// Normalize repairs near-JSON payload text so it parses as strict JSON.
// It removes comments outside strings, trailing commas before '}' or ']',
// re-encodes backtick-delimited literals as JSON strings, escapes raw control
// characters inside strings and strips a surrounding Markdown code fence.
// Text that is already strict JSON is returned unchanged.
//
// If the result still does not parse, the error is a MalformedPayloadError
// carrying the parser message and byte offset.
func Normalize(payload string) (string, error) {
	if json.Valid([]byte(payload)) {
		return payload, nil
	}

	n := &normalizer{
		src:     []byte(stripFence(payload)),
		lastSig: -1,
	}
	n.out = make([]byte, 0, len(n.src))
	n.run()

	out := string(n.out)
	if err := checkStrict(out); err != nil {
		return "", err
	}

	return out, nil
}

func (n *normalizer) run() {
	src := n.src
	for i := 0; i < len(src); i++ {
		c := src[i]

		switch n.state {
		case stateDefault:
			switch {
			case c == '"':
				n.emit(c)
				n.state = stateString
			case c == '`':
				n.backtick = n.backtick[:0]
				n.state = stateBacktick
			case c == '/' && i+1 < len(src) && src[i+1] == '/':
				n.state = stateLineComment
				i++
			case c == '/' && i+1 < len(src) && src[i+1] == '*':
				n.state = stateBlockComment
				i++
			case c == '}' || c == ']':
				n.dropTrailingComma()
				n.emit(c)
			default:
				n.emit(c)
			}

		case stateString:
			switch {
			case c == '\\' && i+1 < len(src):
				n.out = append(n.out, c, src[i+1])
				i++
			case c == '"':
				n.emit(c)
				n.state = stateDefault
			case c < 0x20:
				n.out = append(n.out, escapeControl(c)...)
			default:
				n.out = append(n.out, c)
			}

		case stateBacktick:
			switch {
			case c == '\\' && i+1 < len(src):
				n.backtick = appendTemplateEscape(n.backtick, src[i+1])
				i++
			case c == '`':
				n.emitBacktick()
				n.state = stateDefault
			default:
				n.backtick = append(n.backtick, c)
			}

		case stateLineComment:
			if c == '\n' {
				n.out = append(n.out, c)
				n.state = stateDefault
			}

		case stateBlockComment:
			if c == '*' && i+1 < len(src) && src[i+1] == '/' {
				n.state = stateDefault
				i++
			}
		}
	}

	// An unterminated literal is emitted raw so the strict parse reports it.
	if n.state == stateBacktick {
		n.out = append(n.out, '`')
		n.out = append(n.out, n.backtick...)
	}
}

func (n *normalizer) emit(c byte) {
	n.out = append(n.out, c)
	if !isSpace(c) {
		n.lastSig = len(n.out) - 1
	}
}

// dropTrailingComma removes a comma that is the last significant byte before
// a closing bracket, keeping any whitespace after it.
func (n *normalizer) dropTrailingComma() {
	if n.lastSig < 0 || n.out[n.lastSig] != ',' {
		return
	}

	n.out = append(n.out[:n.lastSig], n.out[n.lastSig+1:]...)
	n.lastSig = -1
	for j := len(n.out) - 1; j >= 0; j-- {
		if !isSpace(n.out[j]) {
			n.lastSig = j
			break
		}
	}
}

func (n *normalizer) emitBacktick() {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(string(n.backtick))

	n.out = append(n.out, bytes.TrimRight(buf.Bytes(), "\n")...)
	n.lastSig = len(n.out) - 1
}

// appendTemplateEscape resolves one backslash escape inside a backtick
// literal. Escaped whitespace becomes the literal character and escaped
// template syntax becomes plain text; anything else keeps its backslash.
func appendTemplateEscape(dst []byte, c byte) []byte {
	switch c {
	case 'n':
		return append(dst, '\n')
	case 't':
		return append(dst, '\t')
	case 'r':
		return append(dst, '\r')
	case '`', '$', '\\':
		return append(dst, c)
	default:
		return append(dst, '\\', c)
	}
}

func escapeControl(c byte) []byte {
	switch c {
	case '\n':
		return []byte(`\n`)
	case '\t':
		return []byte(`\t`)
	case '\r':
		return []byte(`\r`)
	default:
		return []byte(fmt.Sprintf(`\u%04x`, c))
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r'
}

// stripFence removes a Markdown code fence wrapped around the payload.
func stripFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}

	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	} else {
		return s
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")

	return strings.TrimSpace(t)
}

func checkStrict(text string) error {
	var v interface{}
	err := json.Unmarshal([]byte(text), &v)
	if err == nil {
		return nil
	}

	merr := errors.NewMalformedPayloadError(err)
	var syntax *json.SyntaxError
	if stderrors.As(err, &syntax) {
		merr.WithContext("offset", syntax.Offset)
	}

	return merr
}

// decodePayload parses strict JSON text into a generic tree, keeping numbers
// as json.Number so their source form survives.
func decodePayload(text string) (map[string]interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, errors.NewMalformedPayloadError(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.NewMalformedPayloadError(fmt.Errorf("unexpected data after top-level value"))
	}

	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, errors.NewMissingComponentError()
	}

	return obj, nil
}
