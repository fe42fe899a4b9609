package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database. These run on
// startup so tables always exist. Amounts are INTEGER minor units and
// dates are ISO-8601 TEXT, which compares chronologically.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS group_members (
    group_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'member',
    PRIMARY KEY (group_id, user_id)
);

CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    amount INTEGER NOT NULL,
    currency TEXT NOT NULL,
    amount_in_base INTEGER NOT NULL,
    rate_missing INTEGER NOT NULL DEFAULT 0,
    date TEXT NOT NULL,
    category_id TEXT NOT NULL DEFAULT '',
    group_id TEXT,
    recurring_rule_id TEXT,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS splits (
    id TEXT PRIMARY KEY,
    transaction_id TEXT NOT NULL,
    owed_by_user_id TEXT NOT NULL,
    amount INTEGER NOT NULL,
    is_paid INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (transaction_id) REFERENCES transactions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS recurring_rules (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    template_transaction_id TEXT NOT NULL,
    frequency TEXT NOT NULL,
    day_of_month INTEGER NOT NULL DEFAULT 0,
    next_due TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'active',
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS settlements (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    from_user_id TEXT NOT NULL,
    to_user_id TEXT NOT NULL,
    amount INTEGER NOT NULL,
    residual INTEGER NOT NULL DEFAULT 0,
    created_by TEXT NOT NULL,
    note TEXT,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_group_id ON transactions(group_id);
CREATE INDEX IF NOT EXISTS idx_transactions_owner_id ON transactions(owner_id);
CREATE INDEX IF NOT EXISTS idx_splits_transaction_id ON splits(transaction_id);
CREATE INDEX IF NOT EXISTS idx_splits_owed_by ON splits(owed_by_user_id, is_paid);
CREATE INDEX IF NOT EXISTS idx_recurring_rules_owner ON recurring_rules(owner_id, status);
CREATE INDEX IF NOT EXISTS idx_settlements_group_id ON settlements(group_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
