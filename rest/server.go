package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/rieske/account-aggregator-go/account"
	"github.com/rieske/account-aggregator-go/eventsourcing"
	"github.com/rieske/account-aggregator-go/logger"
	"github.com/rieske/account-aggregator-go/serialization"
)

// maxStreamSize bounds the body accepted by POST /fold.
const maxStreamSize = 8 << 20

type Server struct {
	accountResource accountResource
	log             logr.Logger
}

func NewRestServer(store eventsourcing.EventStore, log logr.Logger) *Server {
	log = log.WithName("rest")
	return &Server{
		accountResource: accountResource{
			accountService: eventsourcing.NewAccountService(store, eventsourcing.WithLogger(log)),
			log:            log,
		},
		log: log,
	}
}

func (s *Server) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	req = req.WithContext(logger.NewContext(req.Context(), s.log.WithValues("method", req.Method, "path", req.URL.Path)))
	var head string
	head, req.URL.Path = shiftPath(req.URL.Path)
	switch head {
	case "account":
		s.accountResource.ServeHTTP(res, req)
	case "fold":
		s.fold(res, req)
	case "ping":
		res.WriteHeader(http.StatusOK)
		writeBody(logger.FromContext(req.Context()), res, []byte("pong"))
	default:
		http.NotFound(res, req)
	}
}

// fold replays a posted event stream without touching any store.
func (s *Server) fold(res http.ResponseWriter, req *http.Request) {
	log := logger.FromContext(req.Context())
	if req.Method != http.MethodPost {
		respondWithError(log, res, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(res, req.Body, maxStreamSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(log, res, http.StatusRequestEntityTooLarge, fmt.Errorf("event stream exceeds %d bytes", tooLarge.Limit))
			return
		}
		respondWithError(log, res, http.StatusBadRequest, err)
		return
	}
	events, err := serialization.DecodeStream(body)
	if err != nil {
		respondWithError(log, res, http.StatusBadRequest, err)
		return
	}

	snapshot, err := account.Fold(events)
	if err != nil {
		handleDomainError(log, res, err)
		return
	}
	respondWithValue(log, res, snapshot)
}

// shiftPath splits off the first component of p, which will be cleaned of
// relative components before processing. head will never contain a slash and
// tail will always be a rooted path without trailing slash.
func shiftPath(p string) (head, tail string) {
	p = path.Clean("/" + p)
	i := strings.Index(p[1:], "/") + 1
	if i <= 0 {
		return p[1:], "/"
	}
	return p[1:i], p[i:]
}

type errorResponse struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

func respondWithValue(log logr.Logger, res http.ResponseWriter, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		unhandledError(log, res, err)
		return
	}
	respondWithJson(log, res, body)
}

func respondWithJson(log logr.Logger, res http.ResponseWriter, json []byte) {
	res.Header().Set("Content-Type", "application/json")
	writeBody(log, res, json)
}

func writeBody(log logr.Logger, res http.ResponseWriter, body []byte) {
	if _, err := res.Write(body); err != nil {
		log.Error(err, "could not write response")
	}
}

func parseUUID(log logr.Logger, res http.ResponseWriter, uuidStr string) (uuid.UUID, bool) {
	id, err := uuid.Parse(uuidStr)
	if err != nil {
		respondWithError(log, res, http.StatusBadRequest, fmt.Errorf("invalid UUID string: %s", uuidStr))
		return id, false
	}
	return id, true
}

func parseAmount(log logr.Logger, res http.ResponseWriter, name, amountStr string) (int64, bool) {
	amount, err := strconv.ParseInt(amountStr, 10, 64)
	if err != nil {
		respondWithError(log, res, http.StatusBadRequest, fmt.Errorf("integer %s required, got '%s'", name, amountStr))
		return amount, false
	}
	return amount, true
}

func respondWithError(log logr.Logger, res http.ResponseWriter, statusCode int, err error) {
	body := errorResponse{Code: statusCode, Message: err.Error()}
	if kind, ok := account.CodeOf(err); ok {
		body.Code = kind.Code()
		body.Kind = kind.Kind()
	}
	payload, marshalErr := json.Marshal(body)
	if marshalErr != nil {
		log.Error(marshalErr, "could not encode error response")
		res.WriteHeader(http.StatusInternalServerError)
		return
	}
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	writeBody(log, res, payload)
}

func handleDomainError(log logr.Logger, res http.ResponseWriter, err error) {
	kind, ok := account.CodeOf(err)
	if !ok {
		unhandledError(log, res, err)
		return
	}
	switch kind {
	case account.NotFound:
		respondWithError(log, res, http.StatusNotFound, err)
	case account.AlreadyExists, account.ConcurrentModification, account.Closed:
		respondWithError(log, res, http.StatusConflict, err)
	case account.InvalidAmount, account.MaxBalanceExceeded, account.NegativeBalance,
		account.Deactivated, account.Uninstantiated, account.InvalidEventStream:
		respondWithError(log, res, http.StatusUnprocessableEntity, err)
	case account.UnsupportedCurrency, account.EventNotSupported:
		respondWithError(log, res, http.StatusBadRequest, err)
	default:
		unhandledError(log, res, err)
	}
}

func unhandledError(log logr.Logger, res http.ResponseWriter, err error) {
	log.Error(err, "unhandled error")
	respondWithError(log, res, http.StatusInternalServerError, err)
}
