package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractStructuredData(t *testing.T) {
	t.Parallel()

	e := New(Policy{})
	html := `<html><head>
<script type="application/ld+json">
{"@context":"https://schema.org","@type":"Product","name":"Splendore Ring Glamira","sku":"GL-100"}
</script>
<title>Some Branded Title | Glamira Shop</title>
</head><body><h1>Unrelated Heading Text</h1></body></html>`

	name, found := e.Extract(html)
	require.True(t, found)
	require.Equal(t, "Splendore Ring", name)
}

func TestExtractStructuredDataGraphAndTypeList(t *testing.T) {
	t.Parallel()

	e := New(Policy{})
	html := `<script type="application/ld+json">
{"@graph":[{"@type":"WebPage","name":"ignored"},{"@type":["Thing","Product"],"name":"Diamond Ring Aurora"}]}
</script>`

	name, found := e.Extract(html)
	require.True(t, found)
	require.Equal(t, "Diamond Ring Aurora", name)
}

func TestExtractBotWallShortCircuits(t *testing.T) {
	t.Parallel()

	e := New(Policy{})
	html := `<html><head><title>Attention Required! | Cloudflare</title></head>
<body><h1>Perfectly Good Heading</h1></body></html>`

	name, found := e.Extract(html)
	require.False(t, found, "challenge page must not yield a name, got %q", name)
}

func TestExtractDataLayerWithTrailingComma(t *testing.T) {
	t.Parallel()

	e := New(Policy{})
	html := `<script>
window.dataLayer = window.dataLayer || [];
dataLayer.push({"ecommerce": {"detail": {"products": [{"name": "Gold Hoop Earrings Sophia",}]}}});
</script>`

	name, found := e.Extract(html)
	require.True(t, found)
	require.Equal(t, "Gold Hoop Earrings Sophia", name)
}

func TestExtractDataLayerSkuFallback(t *testing.T) {
	t.Parallel()

	e := New(Policy{})
	html := `<script>dataLayer.push({"product": {"sku": "GLAM-SOL-0042"}});</script>`

	name, found := e.Extract(html)
	require.True(t, found)
	require.Equal(t, "GLAM-SOL-0042", name)
}

func TestExtractWindowProductSku(t *testing.T) {
	t.Parallel()

	e := New(Policy{})
	html := `<script>window.product = {"id": 99, "sku": "GLAM-ROSE-01"};</script>`

	name, found := e.Extract(html)
	require.True(t, found)
	require.Equal(t, "GLAM-ROSE-01", name)
}

func TestExtractSelectorPrecedence(t *testing.T) {
	t.Parallel()

	e := New(Policy{})
	html := `<html><head><title>Fallback Title Text</title></head>
<body><h1 class="page-title"><span class="base">Rose Gold Band Velvet</span></h1></body></html>`

	name, found := e.Extract(html)
	require.True(t, found)
	require.Equal(t, "Rose Gold Band Velvet", name)
}

func TestExtractMetaContentAttribute(t *testing.T) {
	t.Parallel()

	e := New(Policy{})
	html := `<html><head><meta property="og:title" content="Buy Silver Pendant Luna | Shop"></head><body></body></html>`

	name, found := e.Extract(html)
	require.True(t, found)
	require.Equal(t, "Silver Pendant Luna", name)
}

func TestExtractTitleSuffixStripped(t *testing.T) {
	t.Parallel()

	e := New(Policy{})
	html := `<html><head><title>Ring ABC | Example Shop</title></head><body></body></html>`

	name, found := e.Extract(html)
	require.True(t, found)
	require.Equal(t, "Ring ABC", name)
}

// A branded candidate that cleans to nothing must not shadow a later selector
// that produces an acceptable name.
func TestExtractRejectedCandidateFallsThrough(t *testing.T) {
	t.Parallel()

	e := New(Policy{})
	html := `<html><head><meta property="og:title" content="Eternity Ring Celine"></head>
<body><h1 class="page-title">Glamira Shop</h1></body></html>`

	name, found := e.Extract(html)
	require.True(t, found)
	require.Equal(t, "Eternity Ring Celine", name)
}

func TestExtractNothingUsable(t *testing.T) {
	t.Parallel()

	e := New(Policy{})
	cases := map[string]string{
		"empty":          "",
		"no candidates":  `<html><body><p>plain prose, no headings</p></body></html>`,
		"denied title":   `<html><head><title>404 Not Found</title></head><body></body></html>`,
		"too short name": `<html><body><h1>Hm</h1></body></html>`,
	}
	for label, html := range cases {
		if name, found := e.Extract(html); found {
			t.Fatalf("%s: expected no name, got %q", label, name)
		}
	}
}
