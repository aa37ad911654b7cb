package rest

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-logr/logr"
	"github.com/rieske/account-aggregator-go/account"
	"github.com/rieske/account-aggregator-go/eventsourcing"
	"github.com/rieske/account-aggregator-go/logger"
	"github.com/rieske/account-aggregator-go/serialization"
)

type accountResource struct {
	accountService *eventsourcing.AccountService
	log            logr.Logger
}

func (r accountResource) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	r.log = logger.FromContext(req.Context())
	var accountID string
	accountID, req.URL.Path = shiftPath(req.URL.Path)
	if accountID == "" {
		respondWithError(r.log, res, http.StatusBadRequest, errors.New("account id required"))
		return
	}

	var action string
	switch req.Method {
	case http.MethodPost:
		r.post(res, req, accountID, req.URL.Query())
	case http.MethodGet:
		action, req.URL.Path = shiftPath(req.URL.Path)
		r.get(res, req, action, accountID)
	case http.MethodPut:
		action, req.URL.Path = shiftPath(req.URL.Path)
		r.put(res, req, action, accountID, req.URL.Query())
	case http.MethodDelete:
		r.delete(res, req, accountID, req.URL.Query())
	default:
		respondWithError(r.log, res, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	}
}

func (r accountResource) post(res http.ResponseWriter, req *http.Request, id string, query url.Values) {
	initialBalance, ok := parseAmount(r.log, res, "initialBalance", query.Get("initialBalance"))
	if !ok {
		return
	}
	maxBalance, ok := parseAmount(r.log, res, "maxBalance", query.Get("maxBalance"))
	if !ok {
		return
	}

	err := r.accountService.OpenAccount(req.Context(), id, query.Get("customer"), initialBalance, maxBalance, account.Currency(query.Get("currency")))
	if err != nil {
		handleDomainError(r.log, res, err)
		return
	}

	res.Header().Set("Location", "/account/"+id)
	res.WriteHeader(http.StatusCreated)
}

func (r accountResource) get(res http.ResponseWriter, req *http.Request, action, id string) {
	switch action {
	case "":
		r.queryAccount(res, req, id)
	case "events":
		r.queryEvents(res, req, id)
	default:
		respondWithError(r.log, res, http.StatusBadRequest, errors.New("action not supported"))
	}
}

func (r accountResource) put(res http.ResponseWriter, req *http.Request, action, id string, query url.Values) {
	switch action {
	case "deposit":
		r.transaction(res, req, id, query, r.accountService.Deposit)
	case "withdraw":
		r.transaction(res, req, id, query, r.accountService.Withdraw)
	case "deactivate":
		r.respond(res, r.accountService.Deactivate(req.Context(), id, query.Get("reason")))
	case "activate":
		r.respond(res, r.accountService.Activate(req.Context(), id))
	case "currency":
		r.changeCurrency(res, req, id, query)
	default:
		respondWithError(r.log, res, http.StatusBadRequest, errors.New("action not supported"))
	}
}

func (r accountResource) queryAccount(res http.ResponseWriter, req *http.Request, id string) {
	snapshot, err := r.accountService.QueryAccount(req.Context(), id)
	if err != nil {
		handleDomainError(r.log, res, err)
		return
	}
	respondWithValue(r.log, res, snapshot)
}

func (r accountResource) queryEvents(res http.ResponseWriter, req *http.Request, id string) {
	events, err := r.accountService.Events(req.Context(), id)
	if err != nil {
		handleDomainError(r.log, res, err)
		return
	}

	response, err := serialization.EncodeStream(events)
	if err != nil {
		unhandledError(r.log, res, err)
		return
	}
	respondWithJson(r.log, res, response)
}

type transactionCommand func(ctx context.Context, id, txID string, amount int64, currency account.Currency) error

func (r accountResource) transaction(res http.ResponseWriter, req *http.Request, id string, query url.Values, command transactionCommand) {
	amount, ok := parseAmount(r.log, res, "amount", query.Get("amount"))
	if !ok {
		return
	}
	txID, ok := parseUUID(r.log, res, query.Get("transactionId"))
	if !ok {
		return
	}

	r.respond(res, command(req.Context(), id, txID.String(), amount, account.Currency(query.Get("currency"))))
}

func (r accountResource) changeCurrency(res http.ResponseWriter, req *http.Request, id string, query url.Values) {
	balance, ok := parseAmount(r.log, res, "balance", query.Get("balance"))
	if !ok {
		return
	}

	r.respond(res, r.accountService.ChangeCurrency(req.Context(), id, balance, account.Currency(query.Get("currency"))))
}

func (r accountResource) delete(res http.ResponseWriter, req *http.Request, id string, query url.Values) {
	r.respond(res, r.accountService.CloseAccount(req.Context(), id, query.Get("reason")))
}

func (r accountResource) respond(res http.ResponseWriter, err error) {
	if err != nil {
		handleDomainError(r.log, res, err)
		return
	}
	res.WriteHeader(http.StatusNoContent)
}
