package parser

import (
	"log/slog"
	"strconv"

	"vcdscan/internal/core/errors"
	"vcdscan/internal/engine/lexer"
	"vcdscan/internal/engine/sampler"
	"vcdscan/internal/engine/signal"
)

// recordKind is the shape of a value-change record.
type recordKind int

const (
	scalarRecord recordKind = iota
	vectorRecord
	textRecord
)

// parseBody consumes the value-change section until end of input.
func (p *parser) parseBody() error {
	for {
		if p.records%cancelCheckEvery == 0 {
			if err := p.ctx.Err(); err != nil {
				p.sampler.Discard()
				return err
			}
		}

		tok, err := p.sc.Next()
		if err != nil {
			p.sampler.Discard()
			return err
		}
		if tok.Kind == lexer.EOF {
			p.sampler.Flush()
			return nil
		}

		switch {
		case tok.Kind == lexer.End,
			tok.Is("$dumpvars"), tok.Is("$dumpall"),
			tok.Is("$dumpon"), tok.Is("$dumpoff"):
			continue

		case tok.Kind == lexer.Keyword:
			// $comment and vendor sections.
			if _, err := p.sc.ReadSection(); err != nil {
				p.sampler.Discard()
				return err
			}
			continue
		}

		var stop bool
		switch c := tok.Text[0]; c {
		case '#':
			stop, err = p.advanceTime(tok)
		case '0', '1', 'x', 'X', 'z', 'Z':
			err = p.change(tok, scalarRecord, tok.Text[:1], tok.Text[1:])
		case 'b', 'B':
			err = p.changeWithID(tok, vectorRecord)
		case 'r', 'R', 's', 'S':
			err = p.changeWithID(tok, textRecord)
		default:
			err = errors.Newf(errors.CodeMalformedToken,
				"unexpected %s, expected a timestamp (#<n>) or a value change (1!, b1010 !, r1.5 !)", tok).
				WithPosition(tok.Line, tok.Offset)
		}
		if err != nil {
			if err = p.fail(err); err != nil {
				return err
			}
		}
		if stop {
			p.sampler.Flush()
			p.truncated = true
			return nil
		}
		if p.opts.Sample == sampler.Immediate && p.sampler.Done() {
			p.truncated = true
			return nil
		}
	}
}

// advanceTime handles a "#<n>" marker. It closes the current timestamp and
// reports whether MaxCycles has been reached.
func (p *parser) advanceTime(tok lexer.Token) (bool, error) {
	ts, err := strconv.ParseUint(tok.Text[1:], 10, 64)
	if err != nil {
		return false, errors.Newf(errors.CodeMalformedToken,
			"malformed timestamp %s, expected '#' followed by a non-negative integer", tok).
			WithPosition(tok.Line, tok.Offset)
	}
	if ts < p.now {
		return false, errors.Newf(errors.CodeNonMonotonicTime,
			"timestamp #%d goes back from #%d, expected non-decreasing time", ts, p.now).
			WithPosition(tok.Line, tok.Offset)
	}
	if ts > p.now {
		p.sampler.Flush()
		p.now = ts
	}
	return p.sampler.Done(), nil
}

// changeWithID reads the identifier token that follows a vector or text value.
func (p *parser) changeWithID(tok lexer.Token, kind recordKind) error {
	idTok, err := p.sc.Next()
	if err != nil {
		return err
	}
	if idTok.Kind == lexer.EOF || idTok.Kind == lexer.End {
		return errors.Newf(errors.CodeMalformedToken,
			"unexpected %s after %s, expected an identifier code", idTok, tok).
			WithPosition(idTok.Line, idTok.Offset)
	}
	return p.change(tok, kind, tok.Text[1:], idTok.Text)
}

// change normalizes one value and applies it to the store and sampler.
func (p *parser) change(tok lexer.Token, kind recordKind, raw, id string) error {
	if id == "" {
		// Tolerate "1 !" written with a separator.
		idTok, err := p.sc.Next()
		if err != nil {
			return err
		}
		if idTok.Kind != lexer.Word && idTok.Kind != lexer.Keyword {
			return errors.Newf(errors.CodeMalformedToken,
				"unexpected %s after %s, expected an identifier code", idTok, tok).
				WithPosition(idTok.Line, idTok.Offset)
		}
		id = idTok.Text
	}

	slot, ok := p.table.Lookup(id)
	if !ok {
		return errors.Newf(errors.CodeUnknownSignalReference,
			"identifier %q is not declared in the header, expected an id from a $var", id).
			WithPosition(tok.Line, tok.Offset)
	}
	info := p.table.Slot(slot)

	value := raw
	switch {
	case info.Kind.Textual():
		// Real and string signals keep their literal text.
	case kind == textRecord:
		return errors.Newf(errors.CodeVectorWidthMismatch,
			"%s assigns a real or string value to %s signal %q, expected a bit vector", tok, info.Kind, id).
			WithPosition(tok.Line, tok.Offset)
	default:
		v, err := signal.Normalize(raw, info.Width)
		switch err {
		case nil:
			value = v
		case signal.ErrTooWide:
			return errors.Newf(errors.CodeVectorWidthMismatch,
				"%s carries %d bits for %q, expected at most the declared %d", tok, len(raw), id, info.Width).
				WithPosition(tok.Line, tok.Offset)
		default:
			return errors.Newf(errors.CodeMalformedToken,
				"%s contains a bit outside {0, 1, x, z}", tok).
				WithPosition(tok.Line, tok.Offset)
		}
	}

	p.sampler.BeforeChange(slot, value)
	p.store.Set(slot, value)
	p.sampler.Observe(slot, value, p.now)
	p.records++
	p.reportProgress()
	return nil
}

// fail applies the error policy. Body-time errors are swallowed in lenient
// mode; everything else aborts and drops uncaptured edges.
func (p *parser) fail(err error) error {
	code, _ := errors.CodeOf(err)
	if p.opts.Lenient && errors.IsBodyCode(code) {
		p.diag.record(code, err)
		slog.Debug("skipping value-change record", "code", code, "error", err)
		return nil
	}
	p.sampler.Discard()
	return err
}
