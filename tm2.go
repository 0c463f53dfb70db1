/*
Package tm2 is a library for cataloguing and extracting PlayStation 2 TIM2
textures.

Decoding itself lives in the tim2 package; this package keeps a SQLite
catalogue of decoded files and can populate it by scanning a directory tree.
*/
package tm2

import (
	"crypto/sha1"
	"fmt"
	"log"
	"os"

	"github.com/bodgit/tm2/tim2"
)

// Tool ties a texture catalogue to a logger.
type Tool struct {
	db     *TextureDB
	logger *log.Logger
}

// New opens, creating if necessary, the catalogue in file.
func New(file string, logger *log.Logger) (*Tool, error) {
	db, err := NewTextureDB(file)
	if err != nil {
		return nil, err
	}

	return &Tool{
		db:     db,
		logger: logger,
	}, nil
}

// Close closes the catalogue.
func (t *Tool) Close() error {
	return t.db.Close()
}

// Add decodes file and records it in the catalogue. A file with the same
// contents as an existing entry replaces that entry.
func (t *Tool) Add(file string) error {
	b, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	m, err := tim2.Decode(b)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}

	sha := fmt.Sprintf("%X", sha1.Sum(b))
	if _, err := t.db.AddTexture(file, sha, int64(len(b)), m); err != nil {
		return err
	}

	t.logger.Printf("Added \"%s\" with %d frame(s), SHA1 \"%s\"\n", file, m.FrameCount(), sha)

	return nil
}

// Textures returns every catalogued texture ordered by path.
func (t *Tool) Textures() ([]Texture, error) {
	return t.db.Textures()
}
