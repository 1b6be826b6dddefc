package pricewatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCanonicalizer(t *testing.T) *Canonicalizer {
	t.Helper()
	canon, err := NewCanonicalizer(testBase, DefaultSiteProfile())
	require.NoError(t, err)
	return canon
}

func TestCanonicalizeStripsQueryAndSlash(t *testing.T) {
	canon := newTestCanonicalizer(t)

	assert.Equal(t,
		canon.Canonicalize(testBase+"/moveis/cadeiras/?ordenar=preco"),
		canon.Canonicalize(testBase+"/moveis/cadeiras"))
	assert.Equal(t, testBase+"/a/b", canon.Canonicalize(testBase+"/a/b/?q=1#frag"))
}

func TestCanonicalizeResolvesRelative(t *testing.T) {
	canon := newTestCanonicalizer(t)

	assert.Equal(t, testBase+"/cadeira-gamer-p123", canon.Canonicalize("/cadeira-gamer-p123"))
	assert.Equal(t, testBase+"/moveis", canon.Canonicalize("moveis/"))
}

func TestCanonicalizeBadInput(t *testing.T) {
	canon := newTestCanonicalizer(t)
	assert.Equal(t, "", canon.Canonicalize("http://%zz"))
}

func TestIsSameOrigin(t *testing.T) {
	canon := newTestCanonicalizer(t)

	assert.True(t, canon.IsSameOrigin(testBase+"/qualquer/coisa"))
	assert.False(t, canon.IsSameOrigin("https://outro.example.com/moveis"))
	assert.False(t, canon.IsSameOrigin("http://loja.example.com.br/moveis"))
}

func TestIsExcluded(t *testing.T) {
	canon := newTestCanonicalizer(t)

	assert.True(t, canon.IsExcluded(testBase+"/minha-conta"))
	assert.True(t, canon.IsExcluded(testBase+"/Checkout/step1"))
	assert.True(t, canon.IsExcluded(testBase+"/index.php"))
	assert.False(t, canon.IsExcluded(testBase+"/moveis/sofas"))
}

func TestIsProductUrl(t *testing.T) {
	canon := newTestCanonicalizer(t)

	assert.True(t, canon.IsProductUrl(testBase+"/cadeira-gamer-p123"))
	assert.False(t, canon.IsProductUrl(testBase+"/moveis/cadeiras"))
	assert.False(t, canon.IsProductUrl(testBase+"/promo-p123/detalhes"))
}

func TestCategoryName(t *testing.T) {
	canon := newTestCanonicalizer(t)

	assert.Equal(t, "/moveis/cadeiras", canon.CategoryName(testBase+"/moveis/cadeiras"))
	assert.Equal(t, "/", canon.CategoryName(testBase))
}

func TestPathSegments(t *testing.T) {
	canon := newTestCanonicalizer(t)

	assert.Equal(t, 0, canon.PathSegments(testBase))
	assert.Equal(t, 2, canon.PathSegments(testBase+"/moveis/cadeiras"))
	assert.Equal(t, 6, canon.PathSegments(testBase+"/a/b/c/d/e/f"))
}
