package repository

import (
	"database/sql"
	"errors"
	"rekubricks/entities"
	"rekubricks/models"
	"time"

	"go.uber.org/zap"
)

// HandoffRepository keeps a log of order messages handed off to WhatsApp.
// The log is informational; nothing reads it back into a cart.
type HandoffRepository interface {
	RecordHandoff(h entities.Handoff) (err error)
	ListHandoffs(since time.Time) (res []entities.Handoff, err error)
}

type HandoffRepo struct {
	db  *sql.DB
	log *zap.Logger
}

func NewHandoffRepository(conn *sql.DB, logger *zap.Logger) (*HandoffRepo, error) {
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
	_, err = conn.Exec(`CREATE TABLE IF NOT EXISTS Handoffs (
		Id TEXT PRIMARY KEY,
		CartSessionId TEXT NOT NULL,
		Date TIMESTAMP NOT NULL,
		Items INTEGER NOT NULL,
		Subtotal DOUBLE PRECISION NOT NULL,
		Message TEXT NOT NULL
	)`)
	if err != nil {
		return nil, err
	}
	return &HandoffRepo{
		db:  conn,
		log: logger,
	}, nil
}

func (o *HandoffRepo) RecordHandoff(h entities.Handoff) (err error) {
	_, err = o.db.Exec("INSERT INTO Handoffs (Id, CartSessionId, Date, Items, Subtotal, Message) VALUES ($1, $2, $3, $4, $5, $6)",
		h.Id, h.CartSessionId, h.Date.UTC(), h.Items, h.Subtotal, h.Message)
	if err != nil {
		o.log.Error("RecordHandoff", zap.Error(err))
		err = models.ErrServerError
	}
	return
}

func (o *HandoffRepo) ListHandoffs(since time.Time) (res []entities.Handoff, err error) {
	rows, e := o.db.Query("SELECT Id, CartSessionId, Date, Items, Subtotal, Message FROM Handoffs WHERE Date >= $1 ORDER BY Date", since.UTC())
	if e != nil {
		o.log.Error("ListHandoffs[1]", zap.Error(e))
		err = models.ErrServerError
		return
	}
	defer rows.Close()
	for rows.Next() {
		var h entities.Handoff
		if err = rows.Scan(&h.Id, &h.CartSessionId, &h.Date, &h.Items, &h.Subtotal, &h.Message); err != nil {
			o.log.Error("ListHandoffs[2]", zap.Error(err))
			err = models.ErrServerError
			return
		}
		res = append(res, h)
	}
	return
}
