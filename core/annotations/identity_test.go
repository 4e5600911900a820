package annotations

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentity(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		path string
		text string
		want string
	}{
		{name: "plain", path: "a.txt", text: "fix auth", want: "a.txt|fix auth"},
		{name: "verbatim text", path: "src/x.ts", text: "Refactor later (see #42)", want: "src/x.ts|Refactor later (see #42)"},
		{name: "leading dot slash", path: "./src/x.ts", text: "t", want: "src/x.ts|t"},
		{name: "leading slash", path: "/src/x.ts", text: "t", want: "src/x.ts|t"},
		{name: "delimiter in text", path: "a.go", text: "a|b", want: "a.go|a|b"},
		{name: "delimiter in path", path: "x|y", text: "z", want: `x\|y|z`},
		{name: "escape char in path", path: `a\b.go`, text: "t", want: `a\\b.go|t`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Identity(tt.path, tt.text))
		})
	}
}

func TestIdentity_Stability(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Identity("p/q.go", "same"), Identity("p/q.go", "same"))
	assert.NotEqual(t, Identity("p/q.go", "same"), Identity("p/r.go", "same"))
	assert.NotEqual(t, Identity("p/q.go", "same"), Identity("p/q.go", "other"))
}

func TestIdentity_DelimiterInPathDoesNotCollide(t *testing.T) {
	t.Parallel()
	assert.NotEqual(t, Identity("x|y", "z"), Identity("x", "y|z"))
	assert.NotEqual(t, Identity(`x\`, "|z"), Identity(`x\|`, "z"))
}

func TestIdentity_IgnoresLine(t *testing.T) {
	t.Parallel()
	a := Annotation{Path: "a.go", Text: "move me", Line: 3}
	b := Annotation{Path: "a.go", Text: "move me", Line: 40}
	assert.Equal(t, a.Identity(), b.Identity())
}

func TestIdentitySet(t *testing.T) {
	t.Parallel()
	s := NewIdentitySet("a|1", "b|2", "a|1")
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has("a|1"))
	assert.False(t, s.Has("c|3"))

	var empty IdentitySet
	assert.False(t, empty.Has("a|1"))
}
