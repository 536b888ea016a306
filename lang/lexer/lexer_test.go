package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/corvid/lang/lexer"
	"github.com/mna/corvid/lang/token"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	lex := lexer.New(src, nil)
	var toks []token.Token
	for {
		tok, err := lex.Next()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func TestLexerKeywordsAndIdents(t *testing.T) {
	toks := scanAll(t, "function foo return")
	require.Len(t, toks, 4) // FUNCTION, IDENT(foo), RETURN, EOF
	assert.Equal(t, token.FUNCTION, toks[0].Kind)
	assert.Equal(t, token.IDENT, toks[1].Kind)
	assert.Equal(t, "foo", toks[1].Value.String)
	assert.Equal(t, token.RETURN, toks[2].Kind)
	assert.Equal(t, token.EOF, toks[3].Kind)
}

func TestLexerNumberLiteral(t *testing.T) {
	toks := scanAll(t, "3.5")
	require.GreaterOrEqual(t, len(toks), 1)
	assert.Equal(t, token.NUMBER, toks[0].Kind)
	assert.Equal(t, 3.5, toks[0].Value.Number)
}

func TestLexerStringLiteralEscapes(t *testing.T) {
	toks := scanAll(t, `"a\nb"`)
	require.GreaterOrEqual(t, len(toks), 1)
	assert.Equal(t, token.STRING, toks[0].Kind)
	assert.Equal(t, "a\nb", toks[0].Value.String)
}

func TestLexerPunctuationAndOperators(t *testing.T) {
	toks := scanAll(t, "a+b==c;")
	var kinds []token.Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Contains(t, kinds, token.OP)
	assert.Contains(t, kinds, token.IDENT)
	assert.Contains(t, kinds, token.SEMI)
}

func TestLexerUngetPushesBackOneToken(t *testing.T) {
	lex := lexer.New("a b", nil)
	first, err := lex.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", first.Value.String)

	lex.Unget(first)
	again, err := lex.Next()
	require.NoError(t, err)
	assert.Equal(t, first, again)

	second, err := lex.Next()
	require.NoError(t, err)
	assert.Equal(t, "b", second.Value.String)
}

func TestLexerUnterminatedStringIsAnError(t *testing.T) {
	lex := lexer.New(`"no closing quote`, nil)
	_, err := lex.Next()
	require.Error(t, err)
}

func TestLexerTracksLineAndColumn(t *testing.T) {
	toks := scanAll(t, "a\nb")
	require.GreaterOrEqual(t, len(toks), 2)
	assert.Equal(t, uint32(1), toks[0].Pos.Line)
	assert.Equal(t, uint32(1), toks[0].Pos.Col)
	assert.Equal(t, uint32(2), toks[1].Pos.Line)
	assert.Equal(t, uint32(1), toks[1].Pos.Col)
}
