package server

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SetupRoutes builds the HTTP surface: table creation, a table list,
// a health check, and the websocket upgrade endpoint.
func SetupRoutes(h *Hub, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Post("/tables", CreateTable(h, log))
	r.Get("/tables", ListTablesHandler(h))
	r.Get("/healthz", Healthz)
	r.Get("/ws", WSHandler(h, log))
	return r
}

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func CreateTable(h *Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var code string
		for {
			c, err := GenerateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			reply := make(chan *Table, 1)
			h.Inbox() <- GetTable{Code: c, Reply: reply}
			if <-reply == nil {
				code = c
				break
			}
			log.Warn("collision on table code, regenerating", zap.String("code", c))
		}

		reply := make(chan *Table, 1)
		h.Inbox() <- EnsureTable{Code: code, Reply: reply}
		if <-reply == nil {
			http.Error(w, "failed to create table", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(struct {
			Code string `json:"code"`
		}{Code: code})
	}
}

func ListTablesHandler(h *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan []string, 1)
		h.Inbox() <- ListTables{Reply: reply}
		codes := <-reply

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Tables []string `json:"tables"`
		}{Tables: codes})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
