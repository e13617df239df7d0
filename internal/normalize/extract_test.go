package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText(t *testing.T) {
	html := `<!doctype html>
<html>
<head><style>p { color: red; }</style><script>var x = "<p>no</p>";</script></head>
<body>
  <header><h1>Site Name</h1></header>
  <nav><a href="/">Home</a><p>Navigation</p></nav>
  <article>
    <h1>Main   Headline</h1>
    <p>First <b>paragraph</b> of
       the story.</p>
    <h2>Section</h2>
    <p>Second paragraph with a <a href="/x">link</a>.</p>
    <p>   </p>
    <div>Sidebar ad</div>
  </article>
  <footer><p>Copyright</p></footer>
</body>
</html>`

	text, err := ExtractText(html)

	require.NoError(t, err)
	assert.Equal(t, "Main Headline\n\nSection\n\nFirst paragraph of the story.\n\nSecond paragraph with a link.", text)
	assert.NotContains(t, text, "Site Name")
	assert.NotContains(t, text, "Navigation")
	assert.NotContains(t, text, "Copyright")
	assert.NotContains(t, text, "Sidebar ad")
}

func TestExtractTextWithoutContent(t *testing.T) {
	text, err := ExtractText("<html><body><div>only layout</div></body></html>")

	require.NoError(t, err)
	assert.Empty(t, text)
}
