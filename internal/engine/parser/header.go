package parser

import (
	"strconv"
	"strings"

	"vcdscan/internal/core/errors"
	"vcdscan/internal/engine/lexer"
	"vcdscan/internal/engine/signal"
)

type scopeFrame struct {
	name string
	id   int
}

// parseHeader consumes declarations through "$enddefinitions $end".
func (p *parser) parseHeader() error {
	var (
		stack     []scopeFrame
		nextFrame = 1
	)
	currentFrame := func() int {
		if len(stack) == 0 {
			return 0
		}
		return stack[len(stack)-1].id
	}

	for {
		tok, err := p.sc.Next()
		if err != nil {
			return err
		}

		switch {
		case tok.Kind == lexer.EOF:
			if len(stack) > 0 {
				return errors.Newf(errors.CodeScopeMismatch,
					"end of input inside scope %q, expected $upscope and $enddefinitions", scopePath(stack)).
					WithPosition(tok.Line, tok.Offset)
			}
			return errors.Newf(errors.CodeMalformedToken,
				"end of input before $enddefinitions, expected a declaration section").
				WithPosition(tok.Line, tok.Offset)

		case tok.Is("$date"):
			if p.header.Date, err = p.sc.ReadSection(); err != nil {
				return err
			}

		case tok.Is("$version"):
			if p.header.Version, err = p.sc.ReadSection(); err != nil {
				return err
			}

		case tok.Is("$comment"):
			text, err := p.sc.ReadSection()
			if err != nil {
				return err
			}
			p.header.Comments = append(p.header.Comments, text)

		case tok.Is("$timescale"):
			text, err := p.sc.ReadSection()
			if err != nil {
				return err
			}
			ts, err := signal.ParseTimescale(text)
			if err != nil {
				return errors.Newf(errors.CodeMalformedToken, "invalid $timescale: %v", err).
					WithPosition(tok.Line, tok.Offset)
			}
			p.header.Timescale = ts

		case tok.Is("$scope"):
			name, err := p.parseScope(tok)
			if err != nil {
				return err
			}
			stack = append(stack, scopeFrame{name: name, id: nextFrame})
			nextFrame++

		case tok.Is("$upscope"):
			if len(stack) == 0 {
				return errors.Newf(errors.CodeScopeMismatch,
					"$upscope without a matching $scope").
					WithPosition(tok.Line, tok.Offset)
			}
			if err := p.expectEnd("$upscope"); err != nil {
				return err
			}
			stack = stack[:len(stack)-1]

		case tok.Is("$var"):
			if err := p.parseVar(tok, stack, currentFrame()); err != nil {
				return err
			}

		case tok.Is("$enddefinitions"):
			if len(stack) > 0 {
				return errors.Newf(errors.CodeScopeMismatch,
					"$enddefinitions inside scope %q, expected %d more $upscope", scopePath(stack), len(stack)).
					WithPosition(tok.Line, tok.Offset)
			}
			return p.expectEnd("$enddefinitions")

		case tok.Kind == lexer.Keyword:
			// Vendor sections such as $attrbegin carry nothing the pipeline uses.
			if _, err := p.sc.ReadSection(); err != nil {
				return err
			}

		default:
			return errors.Newf(errors.CodeMalformedToken,
				"unexpected %s, expected a declaration keyword ($scope, $var, $upscope, $timescale, $enddefinitions)", tok).
				WithPosition(tok.Line, tok.Offset)
		}
	}
}

// parseScope reads "<type> <name> $end" after $scope.
func (p *parser) parseScope(start lexer.Token) (string, error) {
	var words []string
	for {
		tok, err := p.sc.Next()
		if err != nil {
			return "", err
		}
		if tok.Kind == lexer.End {
			break
		}
		if tok.Kind == lexer.EOF {
			return "", errors.Newf(errors.CodeMalformedToken,
				"end of input in $scope, expected \"$scope <type> <name> $end\"").
				WithPosition(start.Line, start.Offset)
		}
		words = append(words, tok.Text)
	}
	if len(words) != 2 {
		return "", errors.Newf(errors.CodeMalformedToken,
			"malformed $scope with %d fields, expected \"$scope <type> <name> $end\"", len(words)).
			WithPosition(start.Line, start.Offset)
	}
	return words[1], nil
}

// parseVar reads "<type> <width> <id> <name> [range] $end" after $var.
func (p *parser) parseVar(start lexer.Token, stack []scopeFrame, frame int) error {
	var fields []string
	for {
		tok, err := p.sc.Next()
		if err != nil {
			return err
		}
		if tok.Kind == lexer.End {
			break
		}
		if tok.Kind == lexer.EOF {
			return errors.Newf(errors.CodeMalformedToken,
				"end of input in $var, expected \"$var <type> <width> <id> <name> $end\"").
				WithPosition(start.Line, start.Offset)
		}
		fields = append(fields, tok.Text)
	}
	if len(fields) < 4 {
		return errors.Newf(errors.CodeMalformedToken,
			"malformed $var with %d fields, expected \"$var <type> <width> <id> <name> $end\"", len(fields)).
			WithPosition(start.Line, start.Offset)
	}

	width, err := strconv.Atoi(fields[1])
	if err != nil || width < 1 {
		return errors.Newf(errors.CodeInvalidWidth,
			"width %q of %q is not a positive integer", fields[1], fields[3]).
			WithPosition(start.Line, start.Offset)
	}

	scope := make([]string, len(stack))
	for i, f := range stack {
		scope[i] = f.name
	}
	_, err = p.table.Declare(signal.Declaration{
		Scope: scope,
		Frame: frame,
		Kind:  signal.Kind(fields[0]),
		Width: width,
		ID:    fields[2],
		Name:  fields[3],
		Range: strings.Join(fields[4:], ""),
	})
	if err != nil {
		return errors.AtPosition(err, start.Line, start.Offset)
	}
	return nil
}

func scopePath(stack []scopeFrame) string {
	names := make([]string, len(stack))
	for i, f := range stack {
		names[i] = f.name
	}
	return strings.Join(names, signal.PathSeparator)
}
