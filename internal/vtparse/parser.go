package vtparse

import (
	"strconv"
	"strings"
	"time"
)

type parserState uint8

const (
	stateGround parserState = iota
	stateEscape
	stateCSI
	stateOSC
	stateOSCEscape
	stateCharset
)

const (
	escByte = 0x1b
	bsByte  = 0x08
)

// Parser is a restartable byte-level VT/ANSI state machine. Feeding a byte
// slice that ends mid-sequence preserves state until the next Feed call;
// malformed sequences are consumed without panicking and counted in
// Unrecognized. Parser never surfaces errors — see spec §4.1/§7.
type Parser struct {
	state parserState

	// current run of text sharing curStyle, flushed to an EventText when the
	// style changes or a line boundary is reached.
	run      strings.Builder
	curStyle Style

	// CSI accumulation.
	csiPrivate byte // '?' or 0
	csiParam   strings.Builder
	csiParams  []string

	// OSC accumulation (consumed and discarded; OSC affects window title /
	// palette, neither of which this core renders).
	oscBuf strings.Builder

	// UTF-8 continuation state.
	utf8Buf  []byte
	utf8Need int

	// Idle-based prompt detection (spec §4.1, §9).
	idleThreshold  time.Duration
	lastByteAt     time.Time
	hasPendingText bool

	Unrecognized int
}

// New creates a Parser with the given idle threshold for prompt detection
// (0 disables the idle-timer signal; GA/EOR markers still work).
func New(idleThreshold time.Duration) *Parser {
	return &Parser{
		curStyle:      DefaultStyle,
		idleThreshold: idleThreshold,
	}
}

// Feed processes a byte slice and returns the events it produced. Safe to
// call repeatedly with arbitrary chunking of the same logical stream.
func (p *Parser) Feed(data []byte) []Event {
	var events []Event
	for _, b := range data {
		events = p.processByte(b, events)
	}
	if len(data) > 0 {
		p.lastByteAt = time.Now()
		p.hasPendingText = p.run.Len() > 0 || p.state != stateGround
	}
	return events
}

// PromptIdleCheck emits a PromptFlush(idle-timeout) if the line in progress
// has been sitting unterminated for longer than the configured idle
// threshold. The orchestrator calls this on its own ticker; the parser
// itself never spawns goroutines or reads the clock unprompted.
func (p *Parser) PromptIdleCheck(now time.Time) []Event {
	if p.idleThreshold <= 0 || !p.hasPendingText || p.state != stateGround {
		return nil
	}
	if p.run.Len() == 0 {
		return nil
	}
	if now.Sub(p.lastByteAt) < p.idleThreshold {
		return nil
	}
	var events []Event
	events = p.flushRun(events)
	events = append(events, Event{Kind: EventPromptFlush, PromptSource: PromptSourceIdleTimeout})
	p.hasPendingText = false
	return events
}

// InjectTelnetPrompt is called by the orchestrator when the telnet filter
// (internal/telnet) observed an IAC GA or IAC EOR marker: these finalize the
// current line as a Prompt regardless of the idle timer.
func (p *Parser) InjectTelnetPrompt(source PromptSource) []Event {
	var events []Event
	events = p.flushRun(events)
	events = append(events, Event{Kind: EventPromptFlush, PromptSource: source})
	p.hasPendingText = false
	return events
}

func (p *Parser) processByte(b byte, events []Event) []Event {
	if p.utf8Need > 0 {
		if b&0xC0 == 0x80 {
			p.utf8Buf = append(p.utf8Buf, b)
			p.utf8Need--
			if p.utf8Need == 0 {
				r := decodeUTF8(p.utf8Buf)
				if p.state == stateGround {
					p.run.WriteRune(r)
				}
				p.utf8Buf = p.utf8Buf[:0]
			}
			return events
		}
		// Invalid continuation: drop what we had and reprocess b fresh.
		p.utf8Buf = p.utf8Buf[:0]
		p.utf8Need = 0
		p.Unrecognized++
	}

	if p.state == stateGround {
		if n := utf8StartLen(b); n > 1 {
			p.utf8Buf = append(p.utf8Buf[:0], b)
			p.utf8Need = n - 1
			return events
		}
	}

	switch p.state {
	case stateGround:
		return p.handleGround(b, events)
	case stateEscape:
		return p.handleEscape(b, events)
	case stateCSI:
		return p.handleCSI(b, events)
	case stateOSC:
		return p.handleOSC(b, events)
	case stateOSCEscape:
		return p.handleOSCEscape(b, events)
	case stateCharset:
		p.state = stateGround
		return events
	default:
		p.state = stateGround
		return events
	}
}

func utf8StartLen(b byte) int {
	switch {
	case b&0x80 == 0x00:
		return 1
	case b&0xE0 == 0xC0:
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		return 4
	default:
		return 1 // invalid lead byte, treat as a single (replacement) byte
	}
}

func decodeUTF8(buf []byte) rune {
	switch len(buf) {
	case 2:
		return rune(buf[0]&0x1F)<<6 | rune(buf[1]&0x3F)
	case 3:
		return rune(buf[0]&0x0F)<<12 | rune(buf[1]&0x3F)<<6 | rune(buf[2]&0x3F)
	case 4:
		return rune(buf[0]&0x07)<<18 | rune(buf[1]&0x3F)<<12 | rune(buf[2]&0x3F)<<6 | rune(buf[3]&0x3F)
	default:
		return 0xFFFD
	}
}

func (p *Parser) handleGround(b byte, events []Event) []Event {
	switch b {
	case escByte:
		p.state = stateEscape
	case '\r':
		// swallowed; only '\n' finalizes the line, a lone '\r' does not
	case '\n':
		events = p.flushRun(events)
		events = append(events, Event{Kind: EventLineBreak})
		p.hasPendingText = false
	case '\a':
		events = append(events, Event{Kind: EventBellOrOther, BellKind: BellRing})
	case bsByte:
		// backspace: drop the last rune of the in-progress run, if any.
		s := p.run.String()
		if s != "" {
			r := []rune(s)
			p.run.Reset()
			p.run.WriteString(string(r[:len(r)-1]))
		}
	case 0x00, 0x0b, 0x0c:
		// NUL/VT/FF: ignore
	default:
		if b < 0x20 {
			p.Unrecognized++
			return events
		}
		p.run.WriteByte(b)
	}
	return events
}

func (p *Parser) handleEscape(b byte, events []Event) []Event {
	switch b {
	case '[':
		p.state = stateCSI
		p.csiPrivate = 0
		p.csiParam.Reset()
		p.csiParams = p.csiParams[:0]
	case ']':
		p.state = stateOSC
		p.oscBuf.Reset()
	case '(', ')', '#', '%':
		// charset designation / DEC line attr: consume one more byte, ignore.
		p.state = stateCharset
	case '=', '>', 'c', 'D', 'E', 'H', 'M', '7', '8':
		// application keypad, reset, index, next-line, tab-set, cursor
		// save/restore: none of these affect span text; ignore.
		p.state = stateGround
	default:
		p.Unrecognized++
		p.state = stateGround
	}
	return events
}

func (p *Parser) handleCSI(b byte, events []Event) []Event {
	switch {
	case b == '?' || b == '>' || b == '=' && p.csiParam.Len() == 0 && len(p.csiParams) == 0:
		p.csiPrivate = b
	case b >= '0' && b <= '9':
		p.csiParam.WriteByte(b)
	case b == ';' || b == ':':
		p.csiParams = append(p.csiParams, p.csiParam.String())
		p.csiParam.Reset()
	case b >= 0x40 && b <= 0x7e:
		if p.csiParam.Len() > 0 || len(p.csiParams) > 0 {
			p.csiParams = append(p.csiParams, p.csiParam.String())
			p.csiParam.Reset()
		}
		events = p.executeCSI(b, events)
		p.state = stateGround
	default:
		// intermediate bytes (space, !, etc.) — ignore and keep reading.
	}
	return events
}

func (p *Parser) executeCSI(final byte, events []Event) []Event {
	switch final {
	case 'm':
		events = p.flushRun(events)
		p.executeSGR()
		events = append(events, Event{Kind: EventSetStyle, Style: p.curStyle})
	case 'K':
		events = p.flushRun(events)
		events = append(events, Event{Kind: EventClearLine})
	case 'A':
		events = append(events, Event{Kind: EventCursorMove, CursorKind: CursorUp, CursorN: p.paramInt(0, 1)})
	case 'B':
		events = append(events, Event{Kind: EventCursorMove, CursorKind: CursorDown, CursorN: p.paramInt(0, 1)})
	case 'C':
		events = append(events, Event{Kind: EventCursorMove, CursorKind: CursorForward, CursorN: p.paramInt(0, 1)})
	case 'D':
		events = append(events, Event{Kind: EventCursorMove, CursorKind: CursorBack, CursorN: p.paramInt(0, 1)})
	case 'H', 'f':
		events = append(events, Event{Kind: EventCursorMove, CursorKind: CursorPosition, CursorN: p.paramInt(0, 1)})
	default:
		// cursor save/restore, scroll region, DEC private modes, etc.:
		// consumed, no span-level effect.
	}
	return events
}

func (p *Parser) paramInt(idx, def int) int {
	if idx >= len(p.csiParams) || p.csiParams[idx] == "" {
		return def
	}
	n, err := strconv.Atoi(p.csiParams[idx])
	if err != nil || n == 0 {
		return def
	}
	return n
}

// executeSGR applies every ';'-separated SGR code to curStyle, grounded on
// the standard 16/256/truecolor SGR table.
func (p *Parser) executeSGR() {
	if len(p.csiParams) == 0 {
		p.curStyle = DefaultStyle
		return
	}
	for i := 0; i < len(p.csiParams); i++ {
		code := p.atoiOr(p.csiParams[i], 0)
		switch {
		case code == 0:
			p.curStyle = DefaultStyle
		case code == 1:
			p.curStyle.Bold = true
		case code == 3:
			p.curStyle.Italic = true
		case code == 4:
			p.curStyle.Underline = true
		case code == 5 || code == 6:
			p.curStyle.Blink = true
		case code == 7:
			p.curStyle.Reverse = true
		case code == 9:
			p.curStyle.Strikethrough = true
		case code == 21 || code == 22:
			p.curStyle.Bold = false
		case code == 23:
			p.curStyle.Italic = false
		case code == 24:
			p.curStyle.Underline = false
		case code == 25:
			p.curStyle.Blink = false
		case code == 27:
			p.curStyle.Reverse = false
		case code == 29:
			p.curStyle.Strikethrough = false
		case code >= 30 && code <= 37:
			p.curStyle.Foreground = ANSI(uint8(code-30), false)
		case code == 38:
			i = p.parseExtendedColor(i, true)
		case code == 39:
			p.curStyle.Foreground = DefaultColor
		case code >= 40 && code <= 47:
			p.curStyle.Background = ANSI(uint8(code-40), false)
		case code == 48:
			i = p.parseExtendedColor(i, false)
		case code == 49:
			p.curStyle.Background = DefaultColor
		case code >= 90 && code <= 97:
			p.curStyle.Foreground = ANSI(uint8(code-90), true)
		case code >= 100 && code <= 107:
			p.curStyle.Background = ANSI(uint8(code-100), true)
		}
	}
}

// parseExtendedColor handles "38;5;N" (256-color) and "38;2;R;G;B"
// (truecolor), returning the index to resume scanning from.
func (p *Parser) parseExtendedColor(i int, foreground bool) int {
	if i+1 >= len(p.csiParams) {
		return i
	}
	mode := p.atoiOr(p.csiParams[i+1], -1)
	switch mode {
	case 5:
		if i+2 >= len(p.csiParams) {
			return i + 1
		}
		idx := p.atoiOr(p.csiParams[i+2], 0)
		c := palette256(idx)
		if foreground {
			p.curStyle.Foreground = c
		} else {
			p.curStyle.Background = c
		}
		return i + 2
	case 2:
		if i+4 >= len(p.csiParams) {
			return i + 1
		}
		r := uint8(p.atoiOr(p.csiParams[i+2], 0))
		g := uint8(p.atoiOr(p.csiParams[i+3], 0))
		b := uint8(p.atoiOr(p.csiParams[i+4], 0))
		c := RGB(r, g, b)
		if foreground {
			p.curStyle.Foreground = c
		} else {
			p.curStyle.Background = c
		}
		return i + 4
	default:
		return i
	}
}

func palette256(idx int) Color {
	if idx < 8 {
		return ANSI(uint8(idx), false)
	}
	if idx < 16 {
		return ANSI(uint8(idx-8), true)
	}
	if idx < 232 {
		idx -= 16
		levels := [6]uint8{0, 95, 135, 175, 215, 255}
		r := levels[(idx/36)%6]
		g := levels[(idx/6)%6]
		b := levels[idx%6]
		return RGB(r, g, b)
	}
	gray := uint8(8 + (idx-232)*10)
	return RGB(gray, gray, gray)
}

func (p *Parser) atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func (p *Parser) handleOSC(b byte, events []Event) []Event {
	switch b {
	case escByte:
		p.state = stateOSCEscape
	case 0x07: // BEL terminates OSC too
		p.state = stateGround
	default:
		p.oscBuf.WriteByte(b)
	}
	return events
}

func (p *Parser) handleOSCEscape(b byte, events []Event) []Event {
	if b == '\\' {
		p.state = stateGround
		return events
	}
	// Not a valid ST — fall back into OSC body, replaying the escape.
	p.state = stateOSC
	return p.handleOSC(b, events)
}

func (p *Parser) flushRun(events []Event) []Event {
	if p.run.Len() == 0 {
		return events
	}
	events = append(events, Event{Kind: EventText, Span: Span{Text: p.run.String(), Style: p.curStyle}})
	p.run.Reset()
	return events
}
