package keyword

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeTokens(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		text string
		out  string
	}{
		{text: "", out: ""},
		{text: "Hello, World!", out: "hello worldi"},
		{text: "you are a b1tch", out: "you are a bitch"},
		{text: "$h!7", out: "shit"},
		{text: "f*ck", out: "fck"},
		{text: "  lots   of\tspace\n", out: "lots of space"},
		{text: "@$$h0l3", out: "asshole"},
		{text: "Gdańsk", out: "gdansk"},
		{text: "f.u.c.k", out: "fuck"},
		{text: "r8 m3 +3n", out: "rb me ten"},
		{text: "you\u00a0are a b1tch", out: "you are a bitch"},
		{text: "gg\u2003wp\u3000all", out: "gg wp all"},
		{text: "fu\u200bck", out: "fuck"},
		{text: "fuuuuuck", out: "fuuuuuck"},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, NormalizeTokens(fix.text), fix.text)
	}
}

func TestNormalizeCollapse(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		text string
		out  string
	}{
		{text: "", out: ""},
		{text: "b u y  f o l l o w e r s", out: "buyfollowers"},
		{text: "Buy_Followers", out: "buyfollowers"},
		{text: "f-r-e-e n.i.t.r.o", out: "freenitro"},
		{text: "CL1CK H3R3", out: "clickhere"},
		{text: "100% fr33", out: "ioo%free"},
		{text: "buy\u00a0followers", out: "buyfollowers"},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, NormalizeCollapse(fix.text), fix.text)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	assert := assert.New(t)
	faker := gofakeit.New(42)

	inputs := []string{
		"B U Y  f0ll0w3r$ @ http://bit.ly/xyz!!",
		"ÀÉÎÕÜ ñ ç",
		"***",
		"a_b-c.d e",
	}
	for i := 0; i < 200; i++ {
		inputs = append(inputs, faker.Sentence(8))
		inputs = append(inputs, faker.LetterN(12)+faker.Numerify("###")+faker.Lexify("@$!+*"))
		inputs = append(inputs, faker.Emoji()+" "+faker.HipsterSentence(4))
	}

	for _, in := range inputs {
		tok := NormalizeTokens(in)
		assert.Equal(tok, NormalizeTokens(tok), in)
		col := NormalizeCollapse(in)
		assert.Equal(col, NormalizeCollapse(col), in)
	}
}

func TestNormalizerMemo(t *testing.T) {
	assert := assert.New(t)

	n := NewNormalizer(2)
	assert.Equal("hello", n.Tokens("HELL0"))
	assert.Equal("hello", n.Tokens("HELL0"))
	assert.Equal(1, n.tokens.Len())
	n.Tokens("one")
	n.Tokens("two")
	assert.Equal(2, n.tokens.Len())

	assert.Equal("ab", n.Collapse("a b"))
	assert.Equal(1, n.collapse.Len())
}
