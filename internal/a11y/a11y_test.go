package a11y

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"pagefind/internal/dom"
)

const form = `<body>
<h2 id="title">Sign in</h2>
<label for="email">Email address</label><input id="email" type="email">
<label>Remember me <input id="remember" type="checkbox" checked></label>
<button id="save" aria-label="Save draft">💾</button>
<button id="go">Go <b>now</b></button>
<input id="submit" type="submit">
<a id="docs" href="/docs">Docs</a><a id="anchor">No href</a>
<img id="logo" alt="Company logo"><img id="spacer" alt="">
<div id="menu" role="menu item">x</div>
<span id="labelled" role="button" aria-labelledby="title">?</span>
<fieldset disabled><input id="inner" type="text"></fieldset>
<div id="gone" style="display: none">hidden</div>
<p id="aria-gone" aria-hidden="true">x</p>
</body>`

func byID(t *testing.T, root *html.Node, id string) *html.Node {
	t.Helper()
	n := dom.ByID(root, id)
	require.NotNil(t, n, id)
	return n
}

func TestRole(t *testing.T) {
	doc, err := dom.ParseString(form)
	require.NoError(t, err)
	root := doc.Root()

	cases := map[string]string{
		"title":    "heading",
		"email":    "textbox",
		"remember": "checkbox",
		"save":     "button",
		"submit":   "button",
		"docs":     "link",
		"anchor":   "",
		"logo":     "img",
		"spacer":   RolePresentation,
		"menu":     "menu",
	}
	for id, want := range cases {
		assert.Equal(t, want, Role(byID(t, root, id)), id)
	}
	assert.True(t, IsStructural(Role(byID(t, root, "anchor"))))
}

func TestAccessibleName(t *testing.T) {
	doc, err := dom.ParseString(form)
	require.NoError(t, err)
	root := doc.Root()

	assert.Equal(t, "Sign in", AccessibleName(byID(t, root, "title")))
	assert.Equal(t, "Email address", AccessibleName(byID(t, root, "email")))
	assert.Equal(t, "Remember me", AccessibleName(byID(t, root, "remember")))
	assert.Equal(t, "Save draft", AccessibleName(byID(t, root, "save")))
	assert.Equal(t, "Go now", AccessibleName(byID(t, root, "go")))
	assert.Equal(t, "Submit", AccessibleName(byID(t, root, "submit")))
	assert.Equal(t, "Company logo", AccessibleName(byID(t, root, "logo")))
	assert.Equal(t, "Sign in", AccessibleName(byID(t, root, "labelled")))
}

func TestStates(t *testing.T) {
	doc, err := dom.ParseString(form)
	require.NoError(t, err)
	root := doc.Root()

	assert.Equal(t, 2, HeadingLevel(byID(t, root, "title")))
	assert.Equal(t, "true", Checked(byID(t, root, "remember")))
	assert.Equal(t, "", Checked(byID(t, root, "email")))
	assert.True(t, Disabled(byID(t, root, "inner")), "disabled fieldsets disable their controls")
	assert.False(t, Disabled(byID(t, root, "email")))
	assert.True(t, IsHidden(byID(t, root, "gone")))
	assert.True(t, IsHidden(byID(t, root, "aria-gone")))
	assert.False(t, IsHidden(byID(t, root, "docs")))
}
