package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeV2(t *testing.T) {
	tests := map[string]string{
		"Дж. К. Роулинг (2001) - #1!": `Дж\. К\. Роулинг \(2001\) \- \#1\!`,
		`a\b`:                         `a\\b`,
		"a_b*c[d]":                    `a\_b\*c\[d\]`,
		"Гарри Поттер":                "Гарри Поттер",
		"https://x.io/a?b=1":          `https://x\.io/a?b\=1`,
	}
	for in, want := range tests {
		assert.Equal(t, want, EscapeV2(in), in)
	}
}
