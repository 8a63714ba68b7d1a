package recognize

import (
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

const shakespeareReply = `{"quote": "To be or not to be", "author": "William Shakespeare", "book": "Hamlet", "tags": ["philosophy"], "notes": ""}`

// writeJPEG creates a blank JPEG of the given size in a temp dir.
func writeJPEG(t *testing.T, width, height int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "card.jpg")
	require.NoError(t, imaging.Save(imaging.New(width, height, color.White), path))

	return path
}
