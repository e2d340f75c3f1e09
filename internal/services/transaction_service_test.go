package services_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"finance/internal/core"
	"finance/internal/services"
	"finance/internal/storage/memory"
)

// --- Mock EventPublisher ---
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishCreated(ctx context.Context, tx core.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockPublisher) PublishUpdated(ctx context.Context, tx core.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockPublisher) PublishDeleted(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}

// --- Mock Repository (only what the failure tests need) ---
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Insert(ctx context.Context, tx core.Transaction) (int64, error) {
	args := m.Called(ctx, tx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) ListAll(ctx context.Context) ([]core.Transaction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]core.Transaction), args.Error(1)
}

func (m *MockRepository) Get(ctx context.Context, id int64) (core.Transaction, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(core.Transaction), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, tx core.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) AggregateByDate(ctx context.Context) ([]core.DailyTotals, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]core.DailyTotals), args.Error(1)
}

func (m *MockRepository) AggregateExpenseByCategory(ctx context.Context) ([]core.CategoryTotal, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]core.CategoryTotal), args.Error(1)
}

func (m *MockRepository) Close() error {
	return m.Called().Error(0)
}

// --- Test Suite ---
type TransactionServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memory.Store
	service *services.TransactionService
}

func (suite *TransactionServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = memory.New()
	suite.service = services.NewTransactionService(suite.store, nil)
}

func TestTransactionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TransactionServiceTestSuite))
}

func (suite *TransactionServiceTestSuite) TestAddTransaction_ThenList() {
	id, err := suite.service.AddTransaction(suite.ctx, core.Expense, "12.50", "Food", "2023-02-28", "lunch")
	suite.Require().NoError(err)

	all, err := suite.service.ListTransactions(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(all, 1)

	got := all[0]
	suite.Equal(id, got.ID)
	suite.Equal(core.Expense, got.Type)
	suite.Equal(12.5, got.Amount)
	suite.Equal("Food", got.Category)
	suite.Equal("2023-02-28", got.Date.String())
	suite.Equal("lunch", got.Description)
}

func (suite *TransactionServiceTestSuite) TestAddTransaction_UniqueIDs() {
	seen := map[int64]bool{}
	for i := 0; i < 5; i++ {
		id, err := suite.service.AddTransaction(suite.ctx, core.Income, "1", "Misc", "2023-01-01", "")
		suite.Require().NoError(err)
		suite.False(seen[id], "id %d reused", id)
		seen[id] = true
	}
}

func (suite *TransactionServiceTestSuite) TestAddTransaction_PreservesRawText() {
	id, err := suite.service.AddTransaction(suite.ctx, core.Expense, " 3 ", "  Food ", "2023-01-01", " note ")
	suite.Require().NoError(err)

	got, err := suite.service.GetTransaction(suite.ctx, id)
	suite.Require().NoError(err)
	suite.Equal("  Food ", got.Category)
	suite.Equal(" note ", got.Description)
	suite.Equal(3.0, got.Amount)
}

func (suite *TransactionServiceTestSuite) TestAddTransaction_ValidationNeverTouchesStore() {
	cases := []struct {
		name     string
		amount   string
		category string
		date     string
		want     error
		field    string
	}{
		{"missing amount", "", "Food", "2023-01-01", core.ErrMissingField, "amount"},
		{"blank category", "5", "   ", "2023-01-01", core.ErrMissingField, "category"},
		{"missing date", "5", "Food", "", core.ErrMissingField, "date"},
		{"zero amount", "0", "Food", "2023-01-01", core.ErrInvalidAmount, "amount"},
		{"negative amount", "-5", "Food", "2023-01-01", core.ErrInvalidAmount, "amount"},
		{"text amount", "ten", "Food", "2023-01-01", core.ErrInvalidAmount, "amount"},
		{"amount underflows to zero", "1e-400", "Food", "2023-01-01", core.ErrInvalidAmount, "amount"},
		{"bad month", "5", "Food", "2023-13-01", core.ErrInvalidDate, "date"},
		{"impossible day", "5", "Food", "2023-02-30", core.ErrInvalidDate, "date"},
	}
	for _, tc := range cases {
		suite.Run(tc.name, func() {
			_, err := suite.service.AddTransaction(suite.ctx, core.Expense, tc.amount, tc.category, tc.date, "")
			suite.Require().ErrorIs(err, tc.want)

			var ve *core.ValidationError
			suite.Require().ErrorAs(err, &ve)
			suite.Equal(tc.field, ve.Field)
		})
	}

	all, err := suite.service.ListTransactions(suite.ctx)
	suite.Require().NoError(err)
	suite.Empty(all)
}

func (suite *TransactionServiceTestSuite) TestAddTransaction_InvalidType() {
	_, err := suite.service.AddTransaction(suite.ctx, core.TransactionType("Transfer"), "5", "Food", "2023-01-01", "")
	suite.ErrorIs(err, core.ErrInvalidType)
}

func (suite *TransactionServiceTestSuite) TestUpdateTransaction() {
	id, err := suite.service.AddTransaction(suite.ctx, core.Expense, "10", "Food", "2023-01-01", "")
	suite.Require().NoError(err)
	otherID, err := suite.service.AddTransaction(suite.ctx, core.Income, "99", "Salary", "2023-01-05", "pay")
	suite.Require().NoError(err)

	suite.Require().NoError(suite.service.UpdateTransaction(suite.ctx, id, "11.25", "Groceries", "2023-01-02", "weekly"))

	got, err := suite.service.GetTransaction(suite.ctx, id)
	suite.Require().NoError(err)
	suite.Equal(11.25, got.Amount)
	suite.Equal("Groceries", got.Category)
	suite.Equal("2023-01-02", got.Date.String())
	suite.Equal("weekly", got.Description)

	other, err := suite.service.GetTransaction(suite.ctx, otherID)
	suite.Require().NoError(err)
	suite.Equal(99.0, other.Amount)
	suite.Equal("Salary", other.Category)
	suite.Equal("pay", other.Description)
}

func (suite *TransactionServiceTestSuite) TestUpdateTransaction_ValidationFailureKeepsRow() {
	id, err := suite.service.AddTransaction(suite.ctx, core.Expense, "10", "Food", "2023-01-01", "")
	suite.Require().NoError(err)

	err = suite.service.UpdateTransaction(suite.ctx, id, "-1", "Food", "2023-01-01", "")
	suite.Require().ErrorIs(err, core.ErrInvalidAmount)

	got, err := suite.service.GetTransaction(suite.ctx, id)
	suite.Require().NoError(err)
	suite.Equal(10.0, got.Amount)
}

func (suite *TransactionServiceTestSuite) TestUpdateTransaction_MissingIDIsNoop() {
	suite.NoError(suite.service.UpdateTransaction(suite.ctx, 404, "1", "x", "2023-01-01", ""))
}

func (suite *TransactionServiceTestSuite) TestDeleteTransaction_Idempotent() {
	id, err := suite.service.AddTransaction(suite.ctx, core.Expense, "10", "Food", "2023-01-01", "")
	suite.Require().NoError(err)

	suite.Require().NoError(suite.service.DeleteTransaction(suite.ctx, id))
	suite.Require().NoError(suite.service.DeleteTransaction(suite.ctx, id))

	all, err := suite.service.ListTransactions(suite.ctx)
	suite.Require().NoError(err)
	for _, tx := range all {
		suite.NotEqual(id, tx.ID)
	}
	_, err = suite.service.GetTransaction(suite.ctx, id)
	suite.ErrorIs(err, core.ErrNotFound)
}

func (suite *TransactionServiceTestSuite) TestIncomeVsExpenseSeries() {
	_, err := suite.service.AddTransaction(suite.ctx, core.Income, "100", "Salary", "2023-01-01", "")
	suite.Require().NoError(err)
	_, err = suite.service.AddTransaction(suite.ctx, core.Expense, "40", "Food", "2023-01-01", "")
	suite.Require().NoError(err)
	_, err = suite.service.AddTransaction(suite.ctx, core.Expense, "10", "Transport", "2023-01-02", "")
	suite.Require().NoError(err)

	series, err := suite.service.IncomeVsExpenseSeries(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(series, 2)
	suite.Equal(core.DailyTotals{Date: core.NewDate(2023, 1, 1), Income: 100, Expense: 40}, series[0])
	suite.Equal(core.DailyTotals{Date: core.NewDate(2023, 1, 2), Income: 0, Expense: 10}, series[1])
}

func (suite *TransactionServiceTestSuite) TestExpenseBreakdown() {
	for _, in := range []struct{ amount, category string }{
		{"30", "Food"}, {"20", "Food"}, {"15", "Transport"},
	} {
		_, err := suite.service.AddTransaction(suite.ctx, core.Expense, in.amount, in.category, "2023-01-01", "")
		suite.Require().NoError(err)
	}
	_, err := suite.service.AddTransaction(suite.ctx, core.Income, "1000", "Salary", "2023-01-01", "")
	suite.Require().NoError(err)

	totals, err := suite.service.ExpenseBreakdown(suite.ctx)
	suite.Require().NoError(err)

	got := map[string]float64{}
	for _, ct := range totals {
		got[ct.Category] = ct.Amount
	}
	suite.Equal(map[string]float64{"Food": 50, "Transport": 15}, got)
}

func TestValidate(t *testing.T) {
	amount, date, err := services.Validate("12.50", "Food", "2023-02-28")
	require.NoError(t, err)
	assert.Equal(t, 12.5, amount)
	assert.Equal(t, core.NewDate(2023, 2, 28), date)

	_, _, err = services.Validate("0", "Food", "2023-02-28")
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	_, _, err = services.Validate("-5", "Food", "2023-02-28")
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	_, _, err = services.Validate("5", "Food", "2023-13-01")
	assert.ErrorIs(t, err, core.ErrInvalidDate)
	_, _, err = services.Validate("5", "Food", "2023-02-30")
	assert.ErrorIs(t, err, core.ErrInvalidDate)

	// Missing fields win over malformed ones.
	_, _, err = services.Validate("abc", "", "nope")
	assert.ErrorIs(t, err, core.ErrMissingField)
}

func TestTransactionService_PublishesEvents(t *testing.T) {
	ctx := context.Background()
	pub := new(MockPublisher)
	svc := services.NewTransactionService(memory.New(), pub)

	pub.On("PublishCreated", ctx, mock.MatchedBy(func(tx core.Transaction) bool {
		return tx.ID == 1 && tx.Category == "Food" && tx.Amount == 5
	})).Return(nil).Once()
	pub.On("PublishUpdated", ctx, mock.MatchedBy(func(tx core.Transaction) bool {
		return tx.ID == 1 && tx.Type == core.Expense && tx.Amount == 6
	})).Return(nil).Once()
	pub.On("PublishDeleted", ctx, int64(1)).Return(nil).Once()

	id, err := svc.AddTransaction(ctx, core.Expense, "5", "Food", "2023-01-01", "")
	require.NoError(t, err)
	require.NoError(t, svc.UpdateTransaction(ctx, id, "6", "Food", "2023-01-01", ""))
	// Update of a missing row publishes nothing.
	require.NoError(t, svc.UpdateTransaction(ctx, 77, "6", "Food", "2023-01-01", ""))
	require.NoError(t, svc.DeleteTransaction(ctx, id))

	pub.AssertExpectations(t)
}

func TestTransactionService_PublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	pub := new(MockPublisher)
	pub.On("PublishCreated", ctx, mock.Anything).Return(errors.New("broker down"))

	svc := services.NewTransactionService(memory.New(), pub)
	id, err := svc.AddTransaction(ctx, core.Income, "1", "Gift", "2023-01-01", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestTransactionService_StorageErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	storageErr := core.NewStorageError("insert", errors.New("disk I/O error"))

	repo := new(MockRepository)
	repo.On("Insert", ctx, mock.Anything).Return(int64(0), storageErr)
	repo.On("ListAll", ctx).Return(nil, core.NewStorageError("list", errors.New("unavailable")))
	repo.On("Update", ctx, mock.Anything).Return(core.NewStorageError("update", errors.New("readonly")))
	repo.On("Delete", ctx, int64(3)).Return(core.NewStorageError("delete", errors.New("readonly")))
	repo.On("AggregateByDate", ctx).Return(nil, core.NewStorageError("aggregate by date", errors.New("x")))
	repo.On("AggregateExpenseByCategory", ctx).Return(nil, core.NewStorageError("aggregate by category", errors.New("x")))

	svc := services.NewTransactionService(repo, nil)

	_, err := svc.AddTransaction(ctx, core.Expense, "1", "Food", "2023-01-01", "")
	assert.True(t, core.IsStorage(err))
	assert.False(t, core.IsValidation(err))

	_, err = svc.ListTransactions(ctx)
	assert.True(t, core.IsStorage(err))
	assert.True(t, core.IsStorage(svc.UpdateTransaction(ctx, 3, "1", "Food", "2023-01-01", "")))
	assert.True(t, core.IsStorage(svc.DeleteTransaction(ctx, 3)))
	_, err = svc.IncomeVsExpenseSeries(ctx)
	assert.True(t, core.IsStorage(err))
	_, err = svc.ExpenseBreakdown(ctx)
	assert.True(t, core.IsStorage(err))

	repo.AssertExpectations(t)
}

func TestTransactionService_ValidationSkipsStorage(t *testing.T) {
	repo := new(MockRepository)
	svc := services.NewTransactionService(repo, nil)

	_, err := svc.AddTransaction(context.Background(), core.Income, "", "x", "2023-01-01", "")
	require.ErrorIs(t, err, core.ErrMissingField)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestTransactionService_Close(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Close").Return(errors.New("busy"))
	pub := new(MockPublisher)
	pub.On("Close").Return(nil)

	err := services.NewTransactionService(repo, pub).Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "busy")

	t.Run("nil components", func(t *testing.T) {
		assert.NoError(t, services.NewTransactionService(nil, nil).Close())
	})
}

func TestExpenseBreakdown_OrderUnconstrained(t *testing.T) {
	ctx := context.Background()
	svc := services.NewTransactionService(memory.New(), nil)
	for _, c := range []string{"Zoo", "Art", "Mid"} {
		_, err := svc.AddTransaction(ctx, core.Expense, "1", c, "2023-01-01", "")
		require.NoError(t, err)
	}
	totals, err := svc.ExpenseBreakdown(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(totals))
	for _, ct := range totals {
		names = append(names, ct.Category)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"Art", "Mid", "Zoo"}, names)
}
