// Package test holds test suites shared by every event store implementation.
package test

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rieske/account-aggregator-go/account"
	"github.com/rieske/account-aggregator-go/eventsourcing"
	"github.com/stretchr/testify/suite"
)

// ConsistencyTestSuite hammers a single account from concurrent writers and
// expects the event store to serialize them through eventId contiguity.
type ConsistencyTestSuite struct {
	suite.Suite
	store           eventsourcing.EventStore
	accountService  *eventsourcing.AccountService
	operationCount  int
	concurrentUsers int
}

func NewConsistencyTestSuite(opCount, concurrentUsers int, store eventsourcing.EventStore) *ConsistencyTestSuite {
	return &ConsistencyTestSuite{
		Suite:           suite.Suite{},
		store:           store,
		accountService:  eventsourcing.NewAccountService(store),
		operationCount:  opCount,
		concurrentUsers: concurrentUsers,
	}
}

func (suite *ConsistencyTestSuite) doConcurrently(action func(s *eventsourcing.AccountService) error) {
	for i := 0; i < suite.operationCount; i++ {
		wg := sync.WaitGroup{}
		wg.Add(suite.concurrentUsers)
		for j := 0; j < suite.concurrentUsers; j++ {
			go suite.withRetryOnConcurrentModification(&wg, i, j, func() error {
				return action(suite.accountService)
			})
		}
		wg.Wait()
	}
}

func (suite *ConsistencyTestSuite) doConcurrentTransactions(action func(s *eventsourcing.AccountService, txID string) error) {
	for i := 0; i < suite.operationCount; i++ {
		txID := uuid.NewString()
		wg := sync.WaitGroup{}
		wg.Add(suite.concurrentUsers)
		for j := 0; j < suite.concurrentUsers; j++ {
			go suite.withRetryOnConcurrentModification(&wg, i, j, func() error {
				return action(suite.accountService, txID)
			})
		}
		wg.Wait()
	}
}

func (suite *ConsistencyTestSuite) withRetryOnConcurrentModification(wg *sync.WaitGroup, iteration, threadNo int, operation func() error) {
	defer wg.Done()
	for {
		err := operation()
		if err == nil {
			return
		}
		if !errors.Is(err, account.ConcurrentModification) {
			suite.T().Errorf(
				"Expecting only concurrent modification errors, got %v, threadNo %v, iteration %v",
				err, threadNo, iteration,
			)
			return
		}
	}
}

func (suite *ConsistencyTestSuite) openAccount(initialBalance, maxBalance int64) string {
	id := uuid.NewString()
	err := suite.accountService.OpenAccount(context.Background(), id, uuid.NewString(), initialBalance, maxBalance, account.USD)
	suite.Require().NoError(err)
	return id
}

func (suite *ConsistencyTestSuite) expectContiguousStream(id string) {
	events, err := suite.store.Events(context.Background(), id, 0)
	suite.Require().NoError(err)
	for i, e := range events {
		suite.Equal(int64(i+1), e.Base().EventID)
	}
}

func (suite *ConsistencyTestSuite) TestConcurrentDeposits() {
	id := suite.openAccount(0, int64(suite.operationCount*suite.concurrentUsers))

	suite.doConcurrently(func(s *eventsourcing.AccountService) error {
		return s.Deposit(context.Background(), id, uuid.NewString(), 1, account.USD)
	})

	snapshot, err := suite.accountService.QueryAccount(context.Background(), id)
	suite.NoError(err)
	suite.Equal(int64(suite.operationCount*suite.concurrentUsers), snapshot.Balance)
	suite.Equal(int64(suite.operationCount*suite.concurrentUsers+1), snapshot.Revision)
	suite.expectContiguousStream(id)
}

func (suite *ConsistencyTestSuite) TestConcurrentWithdrawals() {
	total := int64(suite.operationCount * suite.concurrentUsers)
	id := suite.openAccount(total, total)

	suite.doConcurrently(func(s *eventsourcing.AccountService) error {
		return s.Withdraw(context.Background(), id, uuid.NewString(), 1, account.USD)
	})

	snapshot, err := suite.accountService.QueryAccount(context.Background(), id)
	suite.NoError(err)
	suite.Zero(snapshot.Balance)
	suite.expectContiguousStream(id)
}

func (suite *ConsistencyTestSuite) TestConcurrentIdempotentDeposits() {
	id := suite.openAccount(0, int64(suite.operationCount))

	suite.doConcurrentTransactions(func(s *eventsourcing.AccountService, txID string) error {
		return s.Deposit(context.Background(), id, txID, 1, account.USD)
	})

	snapshot, err := suite.accountService.QueryAccount(context.Background(), id)
	suite.NoError(err)
	suite.Equal(int64(suite.operationCount), snapshot.Balance)
	suite.expectContiguousStream(id)
}

func (suite *ConsistencyTestSuite) TestConcurrentLifecycleChanges() {
	id := suite.openAccount(0, 10)

	suite.doConcurrently(func(s *eventsourcing.AccountService) error {
		if err := s.Deactivate(context.Background(), id, "maintenance"); err != nil {
			return err
		}
		return s.Activate(context.Background(), id)
	})

	snapshot, err := suite.accountService.QueryAccount(context.Background(), id)
	suite.NoError(err)
	suite.Equal(account.StatusActive, snapshot.Status)
	suite.expectContiguousStream(id)
}
