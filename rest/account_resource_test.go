package rest_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/rieske/account-aggregator-go/account"
	"github.com/rieske/account-aggregator-go/rest"
	"github.com/stretchr/testify/assert"
)

type accountResourceFixture struct {
	assert.Assertions
	server *rest.Server
}

func newFixture(t *testing.T) accountResourceFixture {
	return accountResourceFixture{
		Assertions: *assert.New(t),
		server:     newServer(),
	}
}

func (f accountResourceFixture) do(method, path string) *httptest.ResponseRecorder {
	req, err := http.NewRequest(method, path, nil)
	f.NoError(err)
	recorder := httptest.NewRecorder()

	f.server.ServeHTTP(recorder, req)

	return recorder
}

func (f accountResourceFixture) createAccount(initialBalance, maxBalance int64) string {
	id := uuid.NewString()
	res := f.do(http.MethodPost, "/account/"+id+"?customer=CUST001&currency=USD"+
		"&initialBalance="+strconv.FormatInt(initialBalance, 10)+
		"&maxBalance="+strconv.FormatInt(maxBalance, 10))

	f.Equal(http.StatusCreated, res.Code)
	f.Equal("/account/"+id, res.Header().Get("Location"))
	f.Empty(res.Body.String())
	return id
}

func (f accountResourceFixture) queryAccount(id string) account.Snapshot {
	res := f.do(http.MethodGet, "/account/"+id)

	f.Equal("application/json", res.Header().Get("Content-Type"))
	f.Equal(http.StatusOK, res.Code)

	var snapshot account.Snapshot
	f.NoError(json.Unmarshal(res.Body.Bytes(), &snapshot))
	return snapshot
}

func (f accountResourceFixture) transact(action, id string, amount int64, txID string) *httptest.ResponseRecorder {
	return f.do(http.MethodPut, "/account/"+id+"/"+action+"?currency=USD&amount="+strconv.FormatInt(amount, 10)+"&transactionId="+txID)
}

func (f accountResourceFixture) expectError(res *httptest.ResponseRecorder, status int, kind account.Error) {
	f.Equal(status, res.Code)
	var body struct {
		Code int    `json:"code"`
		Kind string `json:"kind"`
	}
	f.NoError(json.Unmarshal(res.Body.Bytes(), &body))
	f.Equal(kind.Code(), body.Code)
	f.Equal(kind.Kind(), body.Kind)
}

func TestOpenAccount(t *testing.T) {
	f := newFixture(t)

	id := f.createAccount(5000, 10000)

	snapshot := f.queryAccount(id)
	f.Equal(account.Snapshot{
		AccountID:  id,
		CustomerID: "CUST001",
		Balance:    5000,
		Currency:   account.USD,
		MaxBalance: 10000,
		Status:     account.StatusActive,
		AccountLog: []account.LogEntry{},
		Revision:   1,
	}, snapshot)
}

func TestConflictOnAccountOpeningWhenAccountAlreadyExists(t *testing.T) {
	f := newFixture(t)
	id := f.createAccount(0, 100)

	res := f.do(http.MethodPost, "/account/"+id+"?customer=CUST002&currency=USD&initialBalance=0&maxBalance=100")

	f.expectError(res, http.StatusConflict, account.AlreadyExists)
}

func TestOpenAccountRequiresIntegerBalances(t *testing.T) {
	f := newFixture(t)

	res := f.do(http.MethodPost, "/account/"+uuid.NewString()+"?customer=CUST001&currency=USD&initialBalance=ten&maxBalance=100")

	f.Equal(http.StatusBadRequest, res.Code)
	f.JSONEq(`{"code":400,"message":"integer initialBalance required, got 'ten'"}`, res.Body.String())
}

func TestOpenAccountInUnsupportedCurrency(t *testing.T) {
	f := newFixture(t)

	res := f.do(http.MethodPost, "/account/"+uuid.NewString()+"?customer=CUST001&currency=EUR&initialBalance=0&maxBalance=100")

	f.expectError(res, http.StatusBadRequest, account.UnsupportedCurrency)
}

func TestQueryMissingAccount(t *testing.T) {
	f := newFixture(t)

	f.expectError(f.do(http.MethodGet, "/account/"+uuid.NewString()), http.StatusNotFound, account.NotFound)
	f.expectError(f.do(http.MethodGet, "/account/"+uuid.NewString()+"/events"), http.StatusNotFound, account.NotFound)
}

func TestDepositAndWithdraw(t *testing.T) {
	f := newFixture(t)
	id := f.createAccount(5000, 10000)

	f.Equal(http.StatusNoContent, f.transact("deposit", id, 500, uuid.NewString()).Code)
	f.Equal(http.StatusNoContent, f.transact("withdraw", id, 200, uuid.NewString()).Code)

	snapshot := f.queryAccount(id)
	f.Equal(int64(5300), snapshot.Balance)
	f.Equal(int64(3), snapshot.Revision)
}

func TestDepositIsIdempotent(t *testing.T) {
	f := newFixture(t)
	id := f.createAccount(0, 100)
	txID := uuid.NewString()

	f.Equal(http.StatusNoContent, f.transact("deposit", id, 10, txID).Code)
	f.Equal(http.StatusNoContent, f.transact("deposit", id, 10, txID).Code)

	f.Equal(int64(10), f.queryAccount(id).Balance)
}

func TestTransactionRequiresValidUUID(t *testing.T) {
	f := newFixture(t)
	id := f.createAccount(0, 100)

	res := f.transact("deposit", id, 10, "foobar")

	f.Equal(http.StatusBadRequest, res.Code)
	f.JSONEq(`{"code":400,"message":"invalid UUID string: foobar"}`, res.Body.String())
}

func TestBalanceLimits(t *testing.T) {
	f := newFixture(t)
	id := f.createAccount(5000, 5500)

	f.expectError(f.transact("deposit", id, 600, uuid.NewString()), http.StatusUnprocessableEntity, account.MaxBalanceExceeded)
	f.expectError(f.transact("withdraw", id, 5001, uuid.NewString()), http.StatusUnprocessableEntity, account.NegativeBalance)
	f.expectError(f.transact("deposit", id, 0, uuid.NewString()), http.StatusUnprocessableEntity, account.InvalidAmount)
}

func TestDeactivateAndActivate(t *testing.T) {
	f := newFixture(t)
	id := f.createAccount(5000, 10000)

	f.Equal(http.StatusNoContent, f.do(http.MethodPut, "/account/"+id+"/deactivate?reason=Security+alert").Code)
	f.Equal(account.StatusDisabled, f.queryAccount(id).Status)
	f.expectError(f.transact("deposit", id, 1, uuid.NewString()), http.StatusUnprocessableEntity, account.Deactivated)

	f.Equal(http.StatusNoContent, f.do(http.MethodPut, "/account/"+id+"/activate").Code)

	snapshot := f.queryAccount(id)
	f.Equal(account.StatusActive, snapshot.Status)
	f.Len(snapshot.AccountLog, 2)
	f.Equal("Security alert", snapshot.AccountLog[0].Message)
	f.Equal("Account reactivated", snapshot.AccountLog[1].Message)
}

func TestChangeCurrency(t *testing.T) {
	f := newFixture(t)
	id := f.createAccount(5000, 10000)

	f.Equal(http.StatusNoContent, f.do(http.MethodPut, "/account/"+id+"/currency?balance=51000&currency=SEK").Code)

	snapshot := f.queryAccount(id)
	f.Equal(int64(51000), snapshot.Balance)
	f.Equal(account.SEK, snapshot.Currency)
	f.Equal("Change currency from 'USD' to 'SEK'", snapshot.AccountLog[0].Message)
}

func TestCloseAccount(t *testing.T) {
	f := newFixture(t)
	id := f.createAccount(5000, 10000)

	f.Equal(http.StatusNoContent, f.do(http.MethodDelete, "/account/"+id+"?reason=Customer+request").Code)

	snapshot := f.queryAccount(id)
	f.Equal(account.StatusClosed, snapshot.Status)
	f.Equal("Reason: Customer request, Closing Balance: '5000'", snapshot.AccountLog[0].Message)
	f.expectError(f.do(http.MethodPut, "/account/"+id+"/activate"), http.StatusConflict, account.Closed)
}

func TestQueryEvents(t *testing.T) {
	f := newFixture(t)
	id := f.createAccount(5000, 10000)
	txID := uuid.NewString()
	f.Equal(http.StatusNoContent, f.transact("deposit", id, 500, txID).Code)

	res := f.do(http.MethodGet, "/account/"+id+"/events")

	f.Equal(http.StatusOK, res.Code)
	var events []map[string]any
	f.NoError(json.Unmarshal(res.Body.Bytes(), &events))
	f.Len(events, 2)
	f.Equal("account-created", events[0]["type"])
	f.Equal("deposit", events[1]["type"])
	f.Equal(txID, events[1]["transactionId"])
	f.Equal(float64(2), events[1]["eventId"])
}

func TestUnsupportedActions(t *testing.T) {
	f := newFixture(t)
	id := f.createAccount(0, 10)

	f.Equal(http.StatusBadRequest, f.do(http.MethodPut, "/account/"+id+"/transfer").Code)
	f.Equal(http.StatusBadRequest, f.do(http.MethodGet, "/account/"+id+"/balance").Code)
	f.Equal(http.StatusMethodNotAllowed, f.do(http.MethodPatch, "/account/"+id).Code)
	f.Equal(http.StatusBadRequest, f.do(http.MethodGet, "/account/").Code)
}
