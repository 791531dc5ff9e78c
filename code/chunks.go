package code

import (
	"go/scanner"
	"go/token"
	"strings"
)

// chunk is a run of consecutive top level items of one kind.
type chunk struct {
	decl bool
	src  string
}

// splitChunks cuts a snippet body into runs of top level declarations and
// runs of statements, in source order. The interpreter decides from the first
// token alone whether a source is a declaration list or a function body, so a
// snippet that mixes both is evaluated one chunk at a time. Bodies that do
// not scan cleanly yield a single chunk holding the whole body, and the
// interpreter reports the error.
func splitChunks(body string) []chunk {
	src := []byte(body)
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))

	var (
		s        scanner.Scanner
		failed   bool
		chunks   []chunk
		toks     []token.Token
		start    = -1
		depth    int
		inHeader bool
	)
	s.Init(file, src, func(token.Position, string) { failed = true }, 0)

	closeItem := func(end int) {
		text := strings.TrimSpace(body[start:end])
		decl := isDecl(toks)
		if n := len(chunks); n > 0 && chunks[n-1].decl == decl {
			chunks[n-1].src += "\n" + text
		} else {
			if !decl && toks[0] == token.FUNC {
				// A leading func literal would be read as a declaration.
				text = ";" + text
			}
			chunks = append(chunks, chunk{decl: decl, src: text})
		}
		start, toks = -1, toks[:0]
	}

	for {
		pos, tok, _ := s.Scan()
		if tok == token.EOF {
			if start >= 0 {
				closeItem(len(src))
			}
			break
		}
		off := file.Offset(pos)
		if start < 0 {
			if tok == token.SEMICOLON {
				continue
			}
			start = off
		}
		toks = append(toks, tok)

		switch tok {
		case token.LPAREN, token.LBRACK:
			depth++
		case token.LBRACE:
			if depth == 0 {
				inHeader = false
			}
			depth++
		case token.RPAREN, token.RBRACK, token.RBRACE:
			depth--
		case token.IF, token.FOR, token.SWITCH, token.SELECT:
			// Semicolons of "for i := 0; i < n; i++ {" and "if v := f(); v {"
			// do not end the statement.
			if depth == 0 {
				inHeader = true
			}
		case token.SEMICOLON:
			if depth == 0 && !inHeader {
				closeItem(off)
			}
		}
	}

	if failed || depth != 0 {
		if strings.TrimSpace(body) == "" {
			return nil
		}
		return []chunk{{src: body}}
	}
	return chunks
}

// isDecl reports whether the tokens of one top level item form a
// declaration: var, const, type, a named func or a method.
func isDecl(toks []token.Token) bool {
	if len(toks) < 2 {
		return false
	}
	switch toks[0] {
	case token.VAR, token.CONST, token.TYPE:
		return true
	case token.FUNC:
		if toks[1] == token.IDENT {
			return true
		}
		if toks[1] != token.LPAREN {
			return false
		}
		// func (r T) Name( is a method; func(x T) R { is a literal.
		depth := 0
		for i := 1; i < len(toks); i++ {
			switch toks[i] {
			case token.LPAREN:
				depth++
			case token.RPAREN:
				depth--
				if depth == 0 {
					return i+2 < len(toks) && toks[i+1] == token.IDENT && toks[i+2] == token.LPAREN
				}
			}
		}
	}
	return false
}
