package knowledge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infra-agent/backend/internal/analysis"
)

func TestTruncateTemplate_CutsOnRuneBoundary(t *testing.T) {
	// Byte 600 lands mid-rune: 599 single-byte characters followed by
	// three-byte runes. The cut must back off instead of splitting one.
	body := strings.Repeat("a", 599) + strings.Repeat("日", 10)

	out := truncateTemplate(body)

	assert.True(t, utf8.ValidString(out))
	assert.LessOrEqual(t, len(out), 600)
	assert.Equal(t, strings.Repeat("a", 599), out)
}

func TestTruncateTemplate_ShortBodyUntouched(t *testing.T) {
	assert.Equal(t, "héllo wörld", truncateTemplate("héllo wörld"))
	assert.Equal(t, strings.Repeat("a", 600), truncateTemplate(strings.Repeat("a", 600)))
}

func TestImportFromURL_StoresValidUTF8Templates(t *testing.T) {
	// 400 two-byte runes = 800 bytes, forcing truncation of multi-byte text.
	page := "<html><body>" +
		"<h2>Kubernetes Éléments</h2>" +
		"<p>" + strings.Repeat("é", 400) + "</p>" +
		"</body></html>"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	store := newTestStore(t)
	importer := NewImporter(store, nil)

	imported, err := importer.ImportFromURL(context.Background(), srv.URL, "docs")
	require.NoError(t, err)
	assert.Equal(t, 1, imported)

	matches := store.FindBestMatches([]string{"kubernetes"}, analysis.IntentInformationRequest, 5)
	require.NotEmpty(t, matches)
	template := matches[0].Pattern.ResponseTemplate
	assert.True(t, utf8.ValidString(template))
	assert.LessOrEqual(t, len(template), 600)
	assert.Equal(t, importedConfidence, matches[0].Pattern.Confidence)
}
