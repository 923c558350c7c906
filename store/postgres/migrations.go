package postgres

// migration is a named schema change applied once, in order.
type migration struct {
	Name    string
	Version string
	Up      string
}

// migrations is the ordered schema for the balance store.
var migrations = []migration{
	{
		Name:    "create_balance_transactions",
		Version: "20260101000001",
		Up: `
CREATE TABLE IF NOT EXISTS balance_transactions (
    principal   TEXT NOT NULL,
    id          TEXT NOT NULL,
    delta       NUMERIC(20,2) NOT NULL,
    reason      INT NOT NULL DEFAULT 0,
    remark      TEXT NOT NULL DEFAULT '',
    reference   TEXT NOT NULL DEFAULT '',
    correlation TEXT NOT NULL DEFAULT '',
    created     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (principal, id)
);

CREATE INDEX IF NOT EXISTS idx_balance_txns_created ON balance_transactions (principal, created);
`,
	},
	{
		Name:    "create_balance_snapshots",
		Version: "20260101000002",
		Up: `
CREATE TABLE IF NOT EXISTS balance_snapshots (
    id        TEXT NOT NULL,
    principal TEXT NOT NULL,
    day_end   TIMESTAMPTZ NOT NULL,
    balance   NUMERIC(20,2) NOT NULL,
    credits   NUMERIC(20,2) NOT NULL,
    debits    NUMERIC(20,2) NOT NULL,
    created   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (principal, day_end)
);
`,
	},
	{
		Name:    "create_balance_deltas",
		Version: "20260101000003",
		Up: `
CREATE TABLE IF NOT EXISTS balance_deltas (
    principal TEXT NOT NULL,
    day       TEXT NOT NULL,
    delta     NUMERIC(20,2) NOT NULL DEFAULT 0,
    PRIMARY KEY (principal, day)
);
`,
	},
	{
		Name:    "create_balance_frozen",
		Version: "20260101000004",
		Up: `
CREATE TABLE IF NOT EXISTS balance_frozen (
    principal TEXT PRIMARY KEY,
    amount    NUMERIC(20,2) NOT NULL DEFAULT 0
);
`,
	},
}
