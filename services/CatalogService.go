package services

import (
	"rekubricks/entities"
	"rekubricks/repository"
	"sort"
	"strconv"

	"go.uber.org/zap"
)

type CatalogService struct {
	cr  repository.CatalogRepository
	log *zap.Logger
}

func NewCatalogService(catalogRepo repository.CatalogRepository, logger *zap.Logger) CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return CatalogService{
		cr:  catalogRepo,
		log: logger,
	}
}

func (cs *CatalogService) GetCategories() (cats []string, err error) {
	cats, err = cs.cr.GetCategories()
	if err != nil {
		return
	}
	cats = sortedStrings(cats)
	return
}

func (cs *CatalogService) GetPiece(id string) (piece entities.Piece, exists bool, err error) {
	piece, exists, err = cs.cr.GetPieceById(id)
	return
}

// NewFilter builds a filter over the whole catalog.
func (cs *CatalogService) NewFilter(opts ...FilterOption) (*FilterService, error) {
	pieces, err := cs.cr.GetAllPieces()
	if err != nil {
		return nil, err
	}
	return NewFilterService(pieces, opts...), nil
}

// AddRequestFor builds the add-to-cart request a product card submits.
func AddRequestFor(p entities.Piece) entities.AddRequest {
	return entities.AddRequest{
		Id:      p.Id,
		PieceId: p.Id,
		IdMolde: p.IdMolde,
		IdColor: p.IdColor,
		Name:    p.Name,
		Color:   p.Color,
		Price:   strconv.FormatFloat(p.Price, 'f', 2, 64),
		Image:   p.Image,
	}
}

type PieceImporter interface {
	ImportPieces(pieces []entities.Piece) (n int, err error)
}

// Import copies every piece from the source catalog into dst.
func Import(src repository.CatalogRepository, dst PieceImporter, logger *zap.Logger) (n int, err error) {
	pieces, err := src.GetAllPieces()
	if err != nil {
		return
	}
	n, err = dst.ImportPieces(pieces)
	if err != nil {
		return
	}
	if logger != nil {
		logger.Info("catalog imported", zap.Int("pieces", n))
	}
	return
}

func sortedStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
