package tm2

import (
	"database/sql"
	"fmt"

	"github.com/bodgit/tm2/tim2"
	_ "github.com/mattn/go-sqlite3"
)

// Texture is a catalogued TIM2 file.
type Texture struct {
	ID      int64
	SHA1    string
	Path    string
	Size    int64
	Version uint8
	Variant tim2.Variant
	Frames  []Frame
}

// Frame summarises one frame of a catalogued texture.
type Frame struct {
	Index        int
	Width        int
	Height       int
	BitsPerPixel int
	Indexed      bool
	Mipmaps      int
	Palettes     int
}

// TextureDB is the SQLite backed catalogue.
type TextureDB struct {
	db *sql.DB
}

// NewTextureDB opens the catalogue in file, creating the schema if needed.
func NewTextureDB(file string) (*TextureDB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS texture (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL UNIQUE, path TEXT NOT NULL, size INTEGER NOT NULL, version INTEGER NOT NULL, variant INTEGER NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS frame (texture_id INTEGER NOT NULL, idx INTEGER NOT NULL, width INTEGER NOT NULL, height INTEGER NOT NULL, bpp INTEGER NOT NULL, indexed INTEGER NOT NULL, mipmaps INTEGER NOT NULL, palettes INTEGER NOT NULL, PRIMARY KEY(texture_id, idx), FOREIGN KEY(texture_id) REFERENCES texture(id) ON DELETE CASCADE)"); err != nil {
		db.Close()
		return nil, err
	}

	return &TextureDB{
		db: db,
	}, nil
}

// Close closes the underlying database.
func (db *TextureDB) Close() error {
	return db.db.Close()
}

// AddTexture records m, read from path, under its SHA1 and returns the row
// id. Any frames previously recorded for the same SHA1 are replaced.
func (db *TextureDB) AddTexture(path, sha string, size int64, m *tim2.Image) (int64, error) {
	tx, err := db.db.Begin()
	if err != nil {
		return 0, err
	}

	id, err := addTexture(tx, path, sha, size, m)
	if err != nil {
		tx.Rollback()
		return 0, err
	}

	return id, tx.Commit()
}

func addTexture(tx *sql.Tx, path, sha string, size int64, m *tim2.Image) (int64, error) {
	var id int64
	switch err := tx.QueryRow("SELECT id FROM texture WHERE sha1 = ?", sha).Scan(&id); err {
	case sql.ErrNoRows:
		result, err := tx.Exec("INSERT INTO texture (sha1, path, size, version, variant) VALUES (?, ?, ?, ?, ?)", sha, path, size, m.Version(), uint8(m.Variant()))
		if err != nil {
			return 0, err
		}
		if id, err = result.LastInsertId(); err != nil {
			return 0, err
		}
	case nil:
		if _, err := tx.Exec("UPDATE texture SET path = ? WHERE id = ?", path, id); err != nil {
			return 0, err
		}
		if _, err := tx.Exec("DELETE FROM frame WHERE texture_id = ?", id); err != nil {
			return 0, err
		}
	default:
		return 0, err
	}

	for i, f := range m.Frames() {
		if _, err := tx.Exec("INSERT INTO frame (texture_id, idx, width, height, bpp, indexed, mipmaps, palettes) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", id, i, f.Width(), f.Height(), f.BitsPerPixel(), f.IsIndexed(), f.MipmapCount(), f.PaletteCount()); err != nil {
			return 0, err
		}
	}

	return id, nil
}

// Textures returns every texture with its frames, ordered by path.
func (db *TextureDB) Textures() ([]Texture, error) {
	rows, err := db.db.Query("SELECT id, sha1, path, size, version, variant FROM texture ORDER BY path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var textures []Texture
	index := make(map[int64]int)
	for rows.Next() {
		var t Texture
		var variant uint8
		if err := rows.Scan(&t.ID, &t.SHA1, &t.Path, &t.Size, &t.Version, &variant); err != nil {
			return nil, err
		}
		t.Variant = tim2.Variant(variant)
		index[t.ID] = len(textures)
		textures = append(textures, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	frames, err := db.db.Query("SELECT texture_id, idx, width, height, bpp, indexed, mipmaps, palettes FROM frame ORDER BY texture_id, idx")
	if err != nil {
		return nil, err
	}
	defer frames.Close()

	for frames.Next() {
		var id int64
		var f Frame
		if err := frames.Scan(&id, &f.Index, &f.Width, &f.Height, &f.BitsPerPixel, &f.Indexed, &f.Mipmaps, &f.Palettes); err != nil {
			return nil, err
		}
		if i, ok := index[id]; ok {
			textures[i].Frames = append(textures[i].Frames, f)
		}
	}

	return textures, frames.Err()
}
