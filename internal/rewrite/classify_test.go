package rewrite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRelative(t *testing.T) {
	root := t.TempDir()

	cases := []struct {
		file     string
		ref      string
		relative bool
	}{
		{file: "index.html", ref: "elements/app.html", relative: true},
		{file: "index.html", ref: "paper-button/paper-button.html", relative: true},
		{file: "index.html", ref: "../paper-button/paper-button.html", relative: false},
		{file: "elements/app.html", ref: "../shared.html", relative: true},
		{file: "elements/app.html", ref: "../../polymer/polymer.html", relative: false},
		{file: "index.html", ref: "https://example.com/x.html", relative: false},
		{file: "index.html", ref: "//cdn.example.com/x.js", relative: false},
		{file: "index.html", ref: "/etc/passwd", relative: false},
		{file: "index.html", ref: "page.html?v=2#top", relative: true},
	}

	for _, tc := range cases {
		got, err := IsRelative(root, tc.file, tc.ref)
		require.NoError(t, err, tc.ref)
		assert.Equal(t, tc.relative, got, "%s from %s", tc.ref, tc.file)
	}
}

func TestIsRelativeRejectsMalformedReferences(t *testing.T) {
	root := t.TempDir()
	for _, ref := range []string{"", "   ", "a\x00b.html", "#only-fragment", "%zz.html"} {
		_, err := IsRelative(root, "index.html", ref)
		assert.Error(t, err, "%q", ref)
	}
}

func TestParseExternal(t *testing.T) {
	cases := []struct {
		ref    string
		name   string
		lookup string
	}{
		{ref: "paper-button/paper-button.html", name: "paper-button", lookup: "paper-button.html"},
		{ref: "../paper-button/paper-button.html", name: "paper-button", lookup: "paper-button.html"},
		{ref: "../../iron-icons/av/icons.html", name: "iron-icons", lookup: "av/icons.html"},
		{ref: "./../polymer/polymer.html", name: "polymer", lookup: "polymer.html"},
		{ref: "../x/a%20b.html?v=1", name: "x", lookup: "a%20b.html?v=1"},
	}
	for _, tc := range cases {
		name, lookup, err := ParseExternal(tc.ref)
		require.NoError(t, err, tc.ref)
		assert.Equal(t, tc.name, name)
		assert.Equal(t, tc.lookup, lookup)
	}

	name, _, err := ParseExternal("../polymer")
	require.ErrorIs(t, err, errNoLookup)
	assert.Equal(t, "polymer", name)

	_, _, err = ParseExternal("../")
	require.ErrorIs(t, err, errEmptyReference)
}

func TestResolveTargetStaysNative(t *testing.T) {
	root := t.TempDir()
	got := resolveTarget(root, filepath.Join("a", "b.html"), "../c/d.html")
	assert.Equal(t, filepath.Join(root, "c", "d.html"), got)
	assert.True(t, isWithin(root, got))
	assert.False(t, isWithin(root, root))
}
