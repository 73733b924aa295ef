package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/scrollspy/internal/visibility"
)

const page = `<!doctype html>
<html><body>
  <nav id="toc"><a href="#intro">Intro</a></nav>
  <main id="content">
    <section class="item" id="intro" data-rows="5"><h2>Intro</h2></section>
    <section class="item" id="usage" data-rows="x">Usage   text</section>
    <section class="other" id="faq">FAQ</section>
    <section class="item" id="api" data-rows="12"></section>
  </main>
</body></html>`

func mustParse(t *testing.T) *Document {
	t.Helper()
	doc, err := ParseString(page)
	require.NoError(t, err)
	return doc
}

func TestQueryNodes_DocumentOrder(t *testing.T) {
	doc := mustParse(t)

	nodes, err := doc.Root().QueryNodes(".item")
	require.NoError(t, err)

	var ids []string
	for _, n := range nodes {
		ids = append(ids, n.ID())
	}
	assert.Equal(t, []string{"intro", "usage", "api"}, ids)
}

func TestQueryAll_ImplementsRoot(t *testing.T) {
	doc := mustParse(t)
	content, err := doc.ByID("content")
	require.NoError(t, err)

	var root visibility.Root = content
	els, err := root.QueryAll("section.item, section.other")
	require.NoError(t, err)
	require.Len(t, els, 4)
	assert.Equal(t, "faq", els[2].ID())

	none, err := root.QueryAll(".missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestQuery_ExcludesScopeNode(t *testing.T) {
	doc := mustParse(t)
	content, err := doc.ByID("content")
	require.NoError(t, err)

	_, err = content.Query("#content")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvalidSelector(t *testing.T) {
	doc := mustParse(t)

	_, err := doc.Root().QueryAll("section[")
	assert.ErrorIs(t, err, ErrInvalidSelector)
	assert.Equal(t, 0, doc.CachedSelectors())
}

func TestSelectorCache(t *testing.T) {
	doc := mustParse(t)

	for i := 0; i < 3; i++ {
		_, err := doc.Root().QueryNodes(".item")
		require.NoError(t, err)
	}
	_, err := doc.Query("#faq")
	require.NoError(t, err)

	assert.Equal(t, 2, doc.CachedSelectors())
}

func TestNodeAccessors(t *testing.T) {
	doc := mustParse(t)

	intro, err := doc.ByID("intro")
	require.NoError(t, err)
	assert.Equal(t, "section", intro.Tag())
	assert.Equal(t, 5, intro.IntAttr("data-rows", 1))
	assert.Equal(t, "Intro", intro.Text())

	usage, err := doc.Query("#usage")
	require.NoError(t, err)
	assert.Equal(t, 1, usage.IntAttr("data-rows", 1), "malformed value falls back")
	assert.Equal(t, "Usage text", usage.Text())

	v, ok := usage.Attr("class")
	assert.True(t, ok)
	assert.Equal(t, "item", v)

	assert.Equal(t, "body", doc.Body().Tag())
	assert.Equal(t, "", doc.Root().Tag())

	_, err = doc.ByID("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
