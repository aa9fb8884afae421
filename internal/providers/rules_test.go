package providers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRulesFirstMatchWins(t *testing.T) {
	calls := 0
	prefix := func(p string) Rule[string, string] {
		return Rule[string, string]{
			Name: p,
			Match: func(s string) (string, bool) {
				calls++
				if strings.HasPrefix(s, p) {
					return strings.TrimPrefix(s, p), true
				}
				return "", false
			},
		}
	}

	rs := Rules[string, string]{prefix("a"), prefix("ab"), prefix("x")}

	out, name, ok := rs.Eval("abc")
	assert.True(t, ok)
	assert.Equal(t, "a", name)
	assert.Equal(t, "bc", out)
	assert.Equal(t, 1, calls, "later rules are not evaluated after a match")

	_, _, ok = rs.Eval("zzz")
	assert.False(t, ok)
}

func TestNextLinkKinds(t *testing.T) {
	assert.Equal(t, NextLink{Kind: Found, URL: "u"}, FoundLink("u"))
	assert.Equal(t, NoMore, NoMoreLinks().Kind)
	assert.Equal(t, Failed, FailedLink().Kind)
	assert.Equal(t, "no-more", NoMore.String())

	p := &Page{URL: "http://a/1"}
	assert.Equal(t, "http://a/1", p.Base())
	p.FinalURL = "http://a/2"
	assert.Equal(t, "http://a/2", p.Base())
}
