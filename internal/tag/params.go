package tag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robert-malhotra/go-msbt/msbp"
)

var errShortParam = errors.New("parameter runs past the parameter block")

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// effectiveParams returns the parameters as stored. Ruby always carries a
// u16 count and the ruby text; every Font parameter is stored as a u16.
func effectiveParams(def *msbp.TagDef) []msbp.ParamDef {
	switch def.Name {
	case msbp.RubyName:
		return []msbp.ParamDef{
			{Name: "num", Type: msbp.Uint16},
			{Name: "rt", Type: msbp.String},
		}
	case msbp.FontName:
		params := make([]msbp.ParamDef, len(def.Params))
		for i, p := range def.Params {
			params[i] = msbp.ParamDef{Name: p.Name, Type: msbp.Uint16}
		}
		return params
	default:
		return def.Params
	}
}

func quote(s string) string {
	return `"` + quoteEscaper.Replace(s) + `"`
}

// literal quotes s only when it could not be read back as a bare token.
func literal(s string) string {
	if s == "" || strings.ContainsAny(s, " =\"<>\\") {
		return quote(s)
	}
	return s
}

// token is one parameter in a tag's text form.
type token struct {
	name   string
	value  string
	quoted bool
}

// tokenize splits the parameter part of a tag into name=value or bare value
// tokens separated by spaces.
func tokenize(s string) ([]token, error) {
	var toks []token
	i := 0
	for {
		for i < len(s) && s[i] == ' ' {
			i++
		}
		if i >= len(s) {
			return toks, nil
		}

		var tok token
		j := i
		for j < len(s) && s[j] != ' ' && s[j] != '=' && s[j] != '"' {
			j++
		}
		if j < len(s) && s[j] == '=' && j > i {
			tok.name = s[i:j]
			i = j + 1
		}

		if i < len(s) && s[i] == '"' {
			v, n, err := unquote(s[i:])
			if err != nil {
				return nil, err
			}
			tok.value, tok.quoted = v, true
			i += n
			if i < len(s) && s[i] != ' ' {
				return nil, fmt.Errorf("%w: text after closing quote", ErrTagSyntax)
			}
		} else {
			j = i
			for j < len(s) && s[j] != ' ' {
				j++
			}
			tok.value = s[i:j]
			i = j
		}
		toks = append(toks, tok)
	}
}

// unquote reads a quoted string at the start of s and returns its value and
// the number of bytes consumed, including both quotes.
func unquote(s string) (string, int, error) {
	var sb strings.Builder
	for i := 1; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			return sb.String(), i + 1, nil
		case '\\':
			if i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\') {
				i++
				sb.WriteByte(s[i])
				continue
			}
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	return "", 0, fmt.Errorf("%w: unterminated string", ErrTagSyntax)
}

// tagEnd returns the index of the '>' closing the tag that starts at i,
// skipping over quoted parameter values.
func tagEnd(text string, i int) (int, error) {
	inQuote := false
	for j := i + 1; j < len(text); j++ {
		switch text[j] {
		case '\\':
			if inQuote {
				j++
			}
		case '"':
			inQuote = !inQuote
		case '>':
			if !inQuote {
				return j, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: missing '>'", ErrTagSyntax)
}
