package repository

import (
	"database/sql"
	"errors"
	"math"
	"os"
	"rekubricks/entities"
	"rekubricks/models"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type CatalogRepository interface {
	GetAllPieces() (pieces []entities.Piece, err error)
	GetPieceById(id string) (piece entities.Piece, exists bool, err error)
	GetCategories() (cats []string, err error)
}

type CatalogRepo struct {
	db  *sql.DB
	log *zap.Logger
}

func NewCatalogRepository(conn *sql.DB, logger *zap.Logger) (*CatalogRepo, error) {
	if conn == nil {
		return nil, errors.New("conn must be non-nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	err := conn.Ping()
	if err != nil {
		return nil, err
	}
	return &CatalogRepo{
		db:  conn,
		log: logger,
	}, nil
}

func (c *CatalogRepo) Migrate() (err error) {
	_, err = c.db.Exec(`CREATE TABLE IF NOT EXISTS Pieces (
		Id TEXT PRIMARY KEY,
		IdMolde TEXT,
		IdColor TEXT,
		Name TEXT NOT NULL,
		Color TEXT,
		Category TEXT,
		Price DOUBLE PRECISION,
		Image TEXT
	)`)
	if err != nil {
		c.log.Error("Migrate", zap.Error(err))
		err = models.ErrServerError
	}
	return
}

func (c *CatalogRepo) GetAllPieces() (pieces []entities.Piece, err error) {
	rows, e := c.db.Query("SELECT Id, IdMolde, IdColor, Name, Color, Category, Price, Image FROM Pieces ORDER BY Id")
	if e != nil {
		c.log.Error("GetAllPieces[1]", zap.Error(e))
		err = models.ErrServerError
		return
	}
	defer rows.Close()
	for rows.Next() {
		var row models.Piece_db
		err = rows.Scan(&row.Id, &row.IdMolde, &row.IdColor, &row.Name, &row.Color, &row.Category, &row.Price, &row.Image)
		if err != nil {
			c.log.Error("GetAllPieces[2]", zap.Error(err))
			err = models.ErrServerError
			return
		}
		if p, ok := pieceFromDb(row); ok {
			pieces = append(pieces, p)
		}
	}
	if err = rows.Err(); err != nil {
		c.log.Error("GetAllPieces[3]", zap.Error(err))
		err = models.ErrServerError
	}
	return
}

func (c *CatalogRepo) GetPieceById(id string) (piece entities.Piece, exists bool, err error) {
	var row models.Piece_db
	err = c.db.QueryRow("SELECT Id, IdMolde, IdColor, Name, Color, Category, Price, Image FROM Pieces WHERE Id = $1", id).
		Scan(&row.Id, &row.IdMolde, &row.IdColor, &row.Name, &row.Color, &row.Category, &row.Price, &row.Image)
	if err != nil {
		if err == sql.ErrNoRows {
			err = nil
		} else {
			c.log.Error("GetPieceById", zap.Error(err))
			err = models.ErrServerError
		}
		return
	}
	piece, exists = pieceFromDb(row)
	return
}

func (c *CatalogRepo) GetCategories() (cats []string, err error) {
	rows, e := c.db.Query("SELECT DISTINCT Category FROM Pieces WHERE Category IS NOT NULL AND Category <> ''")
	if e != nil {
		c.log.Error("GetCategories[1]", zap.Error(e))
		err = models.ErrServerError
		return
	}
	defer rows.Close()
	for rows.Next() {
		var cat string
		if err = rows.Scan(&cat); err != nil {
			c.log.Error("GetCategories[2]", zap.Error(err))
			err = models.ErrServerError
			return
		}
		cats = append(cats, strings.TrimSpace(cat))
	}
	sort.Strings(cats)
	return
}

// ImportPieces upserts cleaned pieces and reports how many rows were written.
func (c *CatalogRepo) ImportPieces(pieces []entities.Piece) (n int, err error) {
	tx, err := c.db.Begin()
	if err != nil {
		c.log.Error("ImportPieces[1]", zap.Error(err))
		err = models.ErrServerError
		return
	}
	defer tx.Rollback()
	for _, p := range pieces {
		_, err = tx.Exec(`INSERT INTO Pieces (Id, IdMolde, IdColor, Name, Color, Category, Price, Image)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (Id) DO UPDATE SET IdMolde = excluded.IdMolde, IdColor = excluded.IdColor,
			Name = excluded.Name, Color = excluded.Color, Category = excluded.Category,
			Price = excluded.Price, Image = excluded.Image`,
			p.Id, p.IdMolde, p.IdColor, p.Name, p.Color, p.Category, p.Price, p.Image)
		if err != nil {
			c.log.Error("ImportPieces[2]", zap.String("id", p.Id), zap.Error(err))
			err = models.ErrServerError
			return
		}
		n++
	}
	if err = tx.Commit(); err != nil {
		c.log.Error("ImportPieces[3]", zap.Error(err))
		err = models.ErrServerError
		n = 0
	}
	return
}

// FileCatalog serves a catalog read once from a YAML seed file.
type FileCatalog struct {
	pieces []entities.Piece
}

func NewFileCatalog(path string, logger *zap.Logger) (*FileCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pieces, dropped, err := ParseCatalog(data)
	if err != nil {
		return nil, err
	}
	if dropped > 0 && logger != nil {
		logger.Warn("catalog rows dropped", zap.String("path", path), zap.Int("dropped", dropped))
	}
	return &FileCatalog{pieces: pieces}, nil
}

// ParseCatalog decodes a YAML list of catalog rows and applies the cleaning
// rules. Rows missing an id, name or image are dropped.
func ParseCatalog(data []byte) (pieces []entities.Piece, dropped int, err error) {
	var rows []models.Piece_file
	if err = yaml.Unmarshal(data, &rows); err != nil {
		return
	}
	for _, row := range rows {
		p, ok := cleanPiece(row)
		if !ok {
			dropped++
			continue
		}
		pieces = append(pieces, p)
	}
	return
}

func (f *FileCatalog) GetAllPieces() ([]entities.Piece, error) {
	out := make([]entities.Piece, len(f.pieces))
	copy(out, f.pieces)
	return out, nil
}

func (f *FileCatalog) GetPieceById(id string) (entities.Piece, bool, error) {
	for _, p := range f.pieces {
		if p.Id == id {
			return p, true, nil
		}
	}
	return entities.Piece{}, false, nil
}

func (f *FileCatalog) GetCategories() ([]string, error) {
	seen := map[string]bool{}
	cats := []string{}
	for _, p := range f.pieces {
		if !seen[p.Category] {
			seen[p.Category] = true
			cats = append(cats, p.Category)
		}
	}
	sort.Strings(cats)
	return cats, nil
}

func pieceFromDb(row models.Piece_db) (entities.Piece, bool) {
	var price *float64
	if row.Price.Valid {
		price = &row.Price.Float64
	}
	return cleanPiece(models.Piece_file{
		Id:       row.Id,
		IdMolde:  row.IdMolde.String,
		IdColor:  row.IdColor.String,
		Name:     row.Name,
		Color:    row.Color.String,
		Category: row.Category.String,
		Price:    price,
		Image:    row.Image.String,
	})
}

func cleanPiece(row models.Piece_file) (p entities.Piece, ok bool) {
	p = entities.Piece{
		Id:       cleanString(row.Id),
		IdMolde:  cleanString(row.IdMolde),
		IdColor:  cleanString(row.IdColor),
		Name:     cleanString(row.Name),
		Color:    cleanString(row.Color),
		Category: cleanString(row.Category),
		Image:    cleanString(row.Image),
	}
	if row.Price != nil && !math.IsNaN(*row.Price) && !math.IsInf(*row.Price, 0) && *row.Price >= 0 {
		p.Price = *row.Price
	}
	if p.Color == "" {
		p.Color = models.DefaultColor
	}
	if p.Category == "" {
		p.Category = models.DefaultCategory
	}
	if p.IdMolde == "" {
		p.IdMolde = p.Id
	}
	if p.Id == "" || p.Name == "" || p.Image == "" || p.Image == "N/A" {
		return
	}
	ok = true
	return
}

func cleanString(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "nan") {
		return ""
	}
	return s
}
