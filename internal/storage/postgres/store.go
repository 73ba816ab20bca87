package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"microAMM/internal/amm"
	"microAMM/internal/fixedpoint"
	"microAMM/internal/model"
)

const uniqueViolation = "23505"

// Store provides Postgres persistence for pools, ledger balances, dispatcher
// progress and pool statistics.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the tables the store uses if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Atomic runs fn in a serializable transaction. Pool and balance rows read
// through the State are locked until commit.
func (s *Store) Atomic(ctx context.Context, fn func(amm.State) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
		return fn(&txState{tx: tx})
	})
}

// ListPools returns every pool ordered by address.
func (s *Store) ListPools(ctx context.Context) ([]model.Pool, error) {
	rows, err := s.pool.Query(ctx, selectPool+` ORDER BY address`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pools []model.Pool
	for rows.Next() {
		pool, err := scanPool(rows)
		if err != nil {
			return nil, err
		}
		pools = append(pools, pool)
	}
	return pools, rows.Err()
}

// Fund credits amount of token to owner outside of any pool transition.
func (s *Store) Fund(ctx context.Context, owner, token common.Address, amount uint64) error {
	return s.Atomic(ctx, func(st amm.State) error {
		tx := st.(*txState)
		current, err := tx.lockBalance(ctx, owner, token)
		if err != nil {
			return err
		}
		next, err := fixedpoint.Add(current, amount)
		if err != nil {
			return errorsmod.Wrapf(err, "fund %s", owner.Hex())
		}
		return tx.setBalance(ctx, owner, token, next)
	})
}

// Outcome returns the recorded outcome of seq.
func (s *Store) Outcome(ctx context.Context, seq uint64) (model.Outcome, bool, error) {
	var raw []byte
	row := s.pool.QueryRow(ctx, `SELECT outcome FROM instruction_outcomes WHERE seq=$1::numeric`, formatAmount(seq))
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Outcome{}, false, nil
		}
		return model.Outcome{}, false, err
	}
	var outcome model.Outcome
	if err := json.Unmarshal(raw, &outcome); err != nil {
		return model.Outcome{}, false, fmt.Errorf("parse outcome %d: %w", seq, err)
	}
	return outcome, true, nil
}

// PruneOutcomes deletes outcomes with a sequence at or below through.
func (s *Store) PruneOutcomes(ctx context.Context, through uint64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM instruction_outcomes WHERE seq <= $1::numeric`, formatAmount(through))
	return err
}

// UpsertPoolStats inserts or updates pool statistics.
func (s *Store) UpsertPoolStats(ctx context.Context, stats []model.PoolStats) error {
	if len(stats) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, st := range stats {
		batch.Queue(`
			INSERT INTO pool_stats (
				pool, initialized, deposits, swaps, swaps_a_to_b, swaps_b_to_a, failed,
				deposited_a, deposited_b, volume_in_a, volume_in_b, volume_out_a, volume_out_b,
				fee_a, fee_b, reserve_a, reserve_b, first_seq, last_seq, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8::numeric,$9::numeric,$10::numeric,$11::numeric,$12::numeric,$13::numeric,
				$14::numeric,$15::numeric,$16::numeric,$17::numeric,$18,$19,now())
			ON CONFLICT (pool)
			DO UPDATE SET
				initialized = EXCLUDED.initialized,
				deposits = EXCLUDED.deposits,
				swaps = EXCLUDED.swaps,
				swaps_a_to_b = EXCLUDED.swaps_a_to_b,
				swaps_b_to_a = EXCLUDED.swaps_b_to_a,
				failed = EXCLUDED.failed,
				deposited_a = EXCLUDED.deposited_a,
				deposited_b = EXCLUDED.deposited_b,
				volume_in_a = EXCLUDED.volume_in_a,
				volume_in_b = EXCLUDED.volume_in_b,
				volume_out_a = EXCLUDED.volume_out_a,
				volume_out_b = EXCLUDED.volume_out_b,
				fee_a = EXCLUDED.fee_a,
				fee_b = EXCLUDED.fee_b,
				reserve_a = EXCLUDED.reserve_a,
				reserve_b = EXCLUDED.reserve_b,
				first_seq = LEAST(pool_stats.first_seq, EXCLUDED.first_seq),
				last_seq = EXCLUDED.last_seq,
				updated_at = now()
		`,
			st.Pool,
			st.Initialized,
			int64(st.Deposits),
			int64(st.Swaps),
			int64(st.SwapsAToB),
			int64(st.SwapsBToA),
			int64(st.Failed),
			st.DepositedA,
			st.DepositedB,
			st.VolumeInA,
			st.VolumeInB,
			st.VolumeOutA,
			st.VolumeOutB,
			st.FeeA,
			st.FeeB,
			formatAmount(st.ReserveA),
			formatAmount(st.ReserveB),
			int64(st.FirstSeq),
			int64(st.LastSeq),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range stats {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the last processed sequence number for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var raw string
	row := s.pool.QueryRow(ctx, `SELECT last_processed::text FROM dispatch_state WHERE name=$1`, name)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	seq, err := parseAmount(raw)
	if err != nil {
		return 0, false, fmt.Errorf("parse state %s: %w", name, err)
	}
	return seq, true, nil
}

// SaveState upserts the last processed sequence number for a name.
func (s *Store) SaveState(ctx context.Context, name string, seq uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO dispatch_state (name, last_processed, updated_at)
		VALUES ($1, $2::numeric, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed = EXCLUDED.last_processed, updated_at = now()
	`, name, formatAmount(seq))
	return err
}

type txState struct {
	tx pgx.Tx
}

func (t *txState) GetPool(ctx context.Context, addr common.Address) (model.Pool, bool, error) {
	row := t.tx.QueryRow(ctx, selectPool+` WHERE address=$1 FOR UPDATE`, addr.Hex())
	pool, err := scanPool(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Pool{}, false, nil
		}
		return model.Pool{}, false, err
	}
	return pool, true, nil
}

func (t *txState) PutPool(ctx context.Context, pool model.Pool) error {
	if err := pool.Validate(); err != nil {
		return err
	}

	tag, err := t.tx.Exec(ctx, `
		UPDATE pools SET reserve_a = $2::numeric, reserve_b = $3::numeric, updated_at = now()
		WHERE address = $1
	`, pool.Address.Hex(), formatAmount(pool.ReserveA), formatAmount(pool.ReserveB))
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	for _, account := range []common.Address{pool.CustodyA, pool.CustodyB} {
		_, err := t.tx.Exec(ctx, `INSERT INTO pool_custody (account, pool) VALUES ($1, $2)`, account.Hex(), pool.Address.Hex())
		if isUniqueViolation(err) {
			return errorsmod.Wrapf(model.ErrAccountMismatch, "custody %s already backs a pool", account.Hex())
		}
		if err != nil {
			return err
		}
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO pools (
			address, token_a, token_b, custody_a, custody_b, authority, fee_bps,
			reserve_a, reserve_b, bump, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8::numeric,$9::numeric,$10,now(),now())
	`,
		pool.Address.Hex(),
		pool.TokenA.Hex(),
		pool.TokenB.Hex(),
		pool.CustodyA.Hex(),
		pool.CustodyB.Hex(),
		pool.Authority.Hex(),
		int32(pool.FeeBps),
		formatAmount(pool.ReserveA),
		formatAmount(pool.ReserveB),
		int16(pool.Bump),
	)
	if isUniqueViolation(err) {
		return errorsmod.Wrapf(model.ErrAlreadyInitialized, "pool %s", pool.Address.Hex())
	}
	return err
}

func (t *txState) Transfer(ctx context.Context, from, to, token common.Address, amount uint64) error {
	zero := common.Address{}
	if from == zero || to == zero || token == zero {
		return errorsmod.Wrap(model.ErrAccountMismatch, "transfer with empty account or token")
	}
	if from == to {
		return errorsmod.Wrapf(model.ErrAccountMismatch, "transfer from %s to itself", from.Hex())
	}

	fromBalance, err := t.lockBalance(ctx, from, token)
	if err != nil {
		return err
	}
	if fromBalance < amount {
		return errorsmod.Wrapf(model.ErrInsufficientBalance, "%s holds %d of %s, needs %d", from.Hex(), fromBalance, token.Hex(), amount)
	}
	toBalance, err := t.lockBalance(ctx, to, token)
	if err != nil {
		return err
	}
	credited, err := fixedpoint.Add(toBalance, amount)
	if err != nil {
		return errorsmod.Wrapf(err, "credit %s", to.Hex())
	}

	if err := t.setBalance(ctx, from, token, fromBalance-amount); err != nil {
		return err
	}
	return t.setBalance(ctx, to, token, credited)
}

func (t *txState) BalanceOf(ctx context.Context, owner, token common.Address) (uint64, error) {
	var raw string
	row := t.tx.QueryRow(ctx, `SELECT amount::text FROM balances WHERE owner=$1 AND token=$2`, owner.Hex(), token.Hex())
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return parseAmount(raw)
}

func (t *txState) CustodyOwner(ctx context.Context, account common.Address) (common.Address, bool, error) {
	var pool string
	row := t.tx.QueryRow(ctx, `SELECT pool FROM pool_custody WHERE account=$1`, account.Hex())
	if err := row.Scan(&pool); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.Address{}, false, nil
		}
		return common.Address{}, false, err
	}
	return common.HexToAddress(pool), true, nil
}

func (t *txState) RecordOutcome(ctx context.Context, outcome model.Outcome) error {
	if outcome.Seq == 0 {
		return fmt.Errorf("outcome sequence is required")
	}
	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO instruction_outcomes (seq, outcome, recorded_at)
		VALUES ($1::numeric, $2, now())
	`, formatAmount(outcome.Seq), data)
	if isUniqueViolation(err) {
		return fmt.Errorf("outcome for sequence %d already recorded", outcome.Seq)
	}
	return err
}

func (t *txState) lockBalance(ctx context.Context, owner, token common.Address) (uint64, error) {
	var raw string
	row := t.tx.QueryRow(ctx, `SELECT amount::text FROM balances WHERE owner=$1 AND token=$2 FOR UPDATE`, owner.Hex(), token.Hex())
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return parseAmount(raw)
}

func (t *txState) setBalance(ctx context.Context, owner, token common.Address, amount uint64) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO balances (owner, token, amount, updated_at)
		VALUES ($1, $2, $3::numeric, now())
		ON CONFLICT (owner, token) DO UPDATE
		SET amount = EXCLUDED.amount, updated_at = now()
	`, owner.Hex(), token.Hex(), formatAmount(amount))
	return err
}

const selectPool = `
	SELECT address, token_a, token_b, custody_a, custody_b, authority, fee_bps,
		reserve_a::text, reserve_b::text, bump
	FROM pools`

func scanPool(row pgx.Row) (model.Pool, error) {
	var (
		address, tokenA, tokenB, custodyA, custodyB, authority string
		reserveA, reserveB                                     string
		feeBps                                                 int32
		bump                                                   int16
	)
	if err := row.Scan(&address, &tokenA, &tokenB, &custodyA, &custodyB, &authority, &feeBps, &reserveA, &reserveB, &bump); err != nil {
		return model.Pool{}, err
	}

	ra, err := parseAmount(reserveA)
	if err != nil {
		return model.Pool{}, fmt.Errorf("pool %s reserve a: %w", address, err)
	}
	rb, err := parseAmount(reserveB)
	if err != nil {
		return model.Pool{}, fmt.Errorf("pool %s reserve b: %w", address, err)
	}
	return model.Pool{
		Address:   common.HexToAddress(address),
		TokenA:    common.HexToAddress(tokenA),
		TokenB:    common.HexToAddress(tokenB),
		CustodyA:  common.HexToAddress(custodyA),
		CustodyB:  common.HexToAddress(custodyB),
		Authority: common.HexToAddress(authority),
		FeeBps:    uint16(feeBps),
		ReserveA:  ra,
		ReserveB:  rb,
		Bump:      uint8(bump),
	}, nil
}

func parseAmount(raw string) (uint64, error) {
	return strconv.ParseUint(raw, 10, 64)
}

func formatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
