package postgres

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pools (
		address    TEXT PRIMARY KEY,
		token_a    TEXT NOT NULL,
		token_b    TEXT NOT NULL,
		custody_a  TEXT NOT NULL,
		custody_b  TEXT NOT NULL,
		authority  TEXT NOT NULL,
		fee_bps    INTEGER NOT NULL CHECK (fee_bps BETWEEN 0 AND 10000),
		reserve_a  NUMERIC(20,0) NOT NULL CHECK (reserve_a >= 0),
		reserve_b  NUMERIC(20,0) NOT NULL CHECK (reserve_b >= 0),
		bump       SMALLINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pool_custody (
		account TEXT PRIMARY KEY,
		pool    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS balances (
		owner      TEXT NOT NULL,
		token      TEXT NOT NULL,
		amount     NUMERIC(20,0) NOT NULL CHECK (amount >= 0),
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (owner, token)
	)`,
	`CREATE TABLE IF NOT EXISTS dispatch_state (
		name           TEXT PRIMARY KEY,
		last_processed NUMERIC(20,0) NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS instruction_outcomes (
		seq         NUMERIC(20,0) PRIMARY KEY,
		outcome     JSONB NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pool_stats (
		pool         TEXT PRIMARY KEY,
		initialized  BOOLEAN NOT NULL,
		deposits     BIGINT NOT NULL,
		swaps        BIGINT NOT NULL,
		swaps_a_to_b BIGINT NOT NULL,
		swaps_b_to_a BIGINT NOT NULL,
		failed       BIGINT NOT NULL,
		deposited_a  NUMERIC NOT NULL,
		deposited_b  NUMERIC NOT NULL,
		volume_in_a  NUMERIC NOT NULL,
		volume_in_b  NUMERIC NOT NULL,
		volume_out_a NUMERIC NOT NULL,
		volume_out_b NUMERIC NOT NULL,
		fee_a        NUMERIC NOT NULL,
		fee_b        NUMERIC NOT NULL,
		reserve_a    NUMERIC(20,0) NOT NULL,
		reserve_b    NUMERIC(20,0) NOT NULL,
		first_seq    BIGINT NOT NULL,
		last_seq     BIGINT NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)`,
}
