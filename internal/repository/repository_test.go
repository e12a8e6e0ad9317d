package repository

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"bank-ledger/internal/config"
	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

type RepositoryTestSuite struct {
	suite.Suite
	ctx   context.Context
	store *Store
}

func (s *RepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &config.Config{DBDriver: config.DriverSQLite, SQLitePath: ":memory:"}
	db, dialect, err := Open(s.ctx, cfg, logger)
	s.Require().NoError(err)
	s.T().Cleanup(func() { db.Close() })

	s.Require().NoError(Migrate(s.ctx, db, dialect, logger))
	s.store = NewStore(db, dialect, logger)
}

func (s *RepositoryTestSuite) newAccount(email, balance string) *domain.Account {
	account := &domain.Account{
		CustomerName: "Alice",
		Email:        email,
		Balance:      decimal.RequireFromString(balance),
	}
	s.Require().NoError(s.store.Account().CreateAccount(s.ctx, account))
	return account
}

func (s *RepositoryTestSuite) TestAccountRoundTrip() {
	created := s.newAccount("alice@example.com", "100.50")
	s.NotZero(created.ID)

	got, err := s.store.Account().GetAccount(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal("alice@example.com", got.Email)
	s.Equal("100.50", domain.FormatMoney(got.Balance))
	s.Equal(time.UTC, got.CreatedAt.Location())
	s.True(got.CreatedAt.Equal(created.CreatedAt))
}

func (s *RepositoryTestSuite) TestDuplicateEmail() {
	s.newAccount("alice@example.com", "0")

	err := s.store.Account().CreateAccount(s.ctx, &domain.Account{CustomerName: "Other", Email: "alice@example.com"})
	s.ErrorIs(err, errors.ErrDuplicateEmail)
}

func (s *RepositoryTestSuite) TestMissingAccount() {
	_, err := s.store.Account().GetAccount(s.ctx, 999)
	s.ErrorIs(err, errors.ErrAccountNotFound)

	err = s.store.Account().UpdateAccountBalance(s.ctx, 999, decimal.NewFromInt(1))
	s.ErrorIs(err, errors.ErrAccountNotFound)

	err = s.store.Account().DeleteAccount(s.ctx, 999)
	s.ErrorIs(err, errors.ErrAccountNotFound)
}

func (s *RepositoryTestSuite) TestTransactionsOrderedAndLatest() {
	account := s.newAccount("alice@example.com", "0")
	repo := s.store.Transaction()

	_, found, err := repo.LatestTransactionTime(s.ctx, account.ID)
	s.Require().NoError(err)
	s.False(found)

	base := Now()
	for i, typ := range []domain.TransactionType{domain.Deposit, domain.Withdrawal, domain.Deposit} {
		tx := &domain.Transaction{
			AccountID: account.ID,
			Amount:    decimal.NewFromInt(int64(i + 1)),
			Type:      typ,
			Timestamp: base.Add(time.Duration(i) * time.Millisecond),
		}
		s.Require().NoError(repo.CreateTransaction(s.ctx, tx))
	}

	txs, err := repo.ListTransactionsByAccount(s.ctx, account.ID)
	s.Require().NoError(err)
	s.Require().Len(txs, 3)
	s.Equal(domain.Withdrawal, txs[1].Type)
	s.Equal("3.00", domain.FormatMoney(txs[2].Amount))
	s.True(txs[0].ID < txs[1].ID && txs[1].ID < txs[2].ID)

	latest, found, err := repo.LatestTransactionTime(s.ctx, account.ID)
	s.Require().NoError(err)
	s.True(found)
	s.True(latest.Equal(base.Add(2*time.Millisecond)))
}

func (s *RepositoryTestSuite) TestUsers() {
	user := &domain.User{Username: "alice", PasswordHash: "hash", Role: domain.RoleStandard}
	s.Require().NoError(s.store.User().CreateUser(s.ctx, user))

	err := s.store.User().CreateUser(s.ctx, &domain.User{Username: "alice", PasswordHash: "x", Role: domain.RoleRoot})
	s.ErrorIs(err, errors.ErrDuplicateUsername)

	got, err := s.store.User().GetUserByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(user.ID, got.ID)
	s.Equal(domain.RoleStandard, got.Role)

	_, err = s.store.User().GetUserByID(s.ctx, 42)
	s.ErrorIs(err, errors.ErrUserNotFound)
}

func (s *RepositoryTestSuite) TestSessions() {
	user := &domain.User{Username: "bob", PasswordHash: "hash", Role: domain.RoleStandard}
	s.Require().NoError(s.store.User().CreateUser(s.ctx, user))

	now := time.Now().UTC()
	live := &domain.Session{ID: uuid.New(), UserID: user.ID, IssuedAt: now, ExpiresAt: now.Add(time.Hour)}
	stale := &domain.Session{ID: uuid.New(), UserID: user.ID, IssuedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	s.Require().NoError(s.store.Session().CreateSession(s.ctx, live))
	s.Require().NoError(s.store.Session().CreateSession(s.ctx, stale))

	got, err := s.store.Session().GetSession(s.ctx, live.ID)
	s.Require().NoError(err)
	s.True(got.Active(now))

	s.Require().NoError(s.store.Session().RevokeSession(s.ctx, live.ID, now))
	got, err = s.store.Session().GetSession(s.ctx, live.ID)
	s.Require().NoError(err)
	s.False(got.Active(now))

	deleted, err := s.store.Session().DeleteExpiredSessions(s.ctx, now)
	s.Require().NoError(err)
	s.Equal(int64(1), deleted)

	_, err = s.store.Session().GetSession(s.ctx, stale.ID)
	s.ErrorIs(err, errors.ErrUnauthorized)
}

func (s *RepositoryTestSuite) TestWithTransactionRollsBack() {
	account := s.newAccount("alice@example.com", "10")

	boom := errors.NewAppError(errors.InvalidInput, "boom")
	err := s.store.WithTransaction(s.ctx, func(tx *Store) error {
		if err := tx.Account().UpdateAccountBalance(s.ctx, account.ID, decimal.NewFromInt(99)); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	got, err := s.store.Account().GetAccount(s.ctx, account.ID)
	s.Require().NoError(err)
	s.Equal("10.00", domain.FormatMoney(got.Balance))
}

func (s *RepositoryTestSuite) TestBalanceLogs() {
	account := s.newAccount("alice@example.com", "0")
	logs := s.store.BalanceLog()

	s.Require().NoError(logs.CreateBalanceLog(s.ctx, &domain.BalanceLog{
		AccountID: account.ID, OldBalance: decimal.Zero, NewBalance: decimal.NewFromInt(5), Reason: domain.ReasonDeposit,
	}))

	got, err := logs.ListBalanceLogs(s.ctx, account.ID)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(domain.ReasonDeposit, got[0].Reason)
	s.Equal("5.00", domain.FormatMoney(got[0].NewBalance))
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func TestRebind(t *testing.T) {
	pg, err := DialectFor(config.DriverPgx)
	if err != nil {
		t.Fatal(err)
	}
	lite, _ := DialectFor(config.DriverSQLite)

	q := "UPDATE accounts SET balance = ? WHERE account_id = ?"
	if got := pg.Rebind(q); got != "UPDATE accounts SET balance = $1 WHERE account_id = $2" {
		t.Fatalf("postgres rebind: %s", got)
	}
	if got := lite.Rebind(q); got != q {
		t.Fatalf("sqlite rebind: %s", got)
	}
}

func TestSQLiteDSNCarriesPragmas(t *testing.T) {
	lite, _ := DialectFor(config.DriverSQLite)
	assert.Equal(t, ":memory:?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", lite.DSN(":memory:"))
	assert.Equal(t, "file:ledger.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", lite.DSN("file:ledger.db?mode=rwc"))

	pg, _ := DialectFor(config.DriverPostgres)
	assert.Equal(t, "host=db sslmode=disable", pg.DSN("host=db sslmode=disable"))
}

// A connection opened after the first one must carry the same pragmas.
func TestSQLitePragmasOnReplacedConnection(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{DBDriver: config.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "ledger.db")}

	db, _, err := Open(ctx, cfg, logger)
	require.NoError(t, err)
	defer db.Close()

	// Drop the idle connection so the next query dials a fresh one.
	db.SetMaxIdleConns(0)
	db.SetMaxIdleConns(1)

	var foreignKeys, busyTimeout int
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&foreignKeys))
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 1, foreignKeys)
	assert.Equal(t, 5000, busyTimeout)
	assert.Equal(t, 1, db.Stats().OpenConnections)
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("-- header; with semicolon\nCREATE TABLE a (x INT);\n\nCREATE INDEX i ON a (x);\n")
	if len(stmts) != 2 || stmts[0] != "CREATE TABLE a (x INT)" {
		t.Fatalf("got %d statements: %q", len(stmts), stmts)
	}
}
