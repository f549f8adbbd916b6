package database

// SQL migrations for the pocketledger database.
// All migrations use IF NOT EXISTS to be idempotent.

const migrationUsers = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    name TEXT NOT NULL,
    cash_balance REAL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

const migrationUserSettings = `
CREATE TABLE IF NOT EXISTS user_settings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    email_notifications INTEGER DEFAULT 1,
    sms_notifications INTEGER DEFAULT 0,
    push_notifications INTEGER DEFAULT 1,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

const migrationCategories = `
CREATE TABLE IF NOT EXISTS categories (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    color TEXT DEFAULT '#6366f1',
    weekly_limit REAL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

const migrationSavingsGoals = `
CREATE TABLE IF NOT EXISTS savings_goals (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    target_amount REAL NOT NULL,
    current_amount REAL DEFAULT 0,
    target_date DATE,
    status TEXT DEFAULT 'active',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// migrationProviderItems stores one linked provider connection per
// (user, item type). The access token is kept as AES-GCM ciphertext; the
// plaintext never reaches the database.
const migrationProviderItems = `
CREATE TABLE IF NOT EXISTS provider_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    item_type TEXT NOT NULL DEFAULT 'bank',
    access_token BLOB NOT NULL,
    token_nonce BLOB NOT NULL,
    last_sync_at DATETIME,
    last_sync_status TEXT,
    last_sync_error TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(user_id, item_type)
);
`

// migrationLinkedAccounts stores synchronized external accounts. The provider
// account id is globally unique and immutable; only balances, name, subtype
// and the sync timestamp change after the first sync.
const migrationLinkedAccounts = `
CREATE TABLE IF NOT EXISTS linked_accounts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    provider_account_id TEXT UNIQUE NOT NULL,
    name TEXT NOT NULL,
    account_type TEXT NOT NULL,
    subtype TEXT,
    current_balance REAL DEFAULT 0,
    available_balance REAL,
    currency TEXT DEFAULT 'USD',
    last_synced_at DATETIME,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// migrationTransactions stores ingested ledger entries. Rows are insert-once:
// the unique provider transaction id rejects duplicates on re-sync and
// existing rows are never updated.
const migrationTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id INTEGER NOT NULL REFERENCES linked_accounts(id) ON DELETE CASCADE,
    provider_transaction_id TEXT UNIQUE NOT NULL,
    amount REAL NOT NULL,
    currency TEXT,
    category_label TEXT,
    merchant_name TEXT,
    posted_on DATE NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

const migrationCategoryLinks = `
CREATE TABLE IF NOT EXISTS category_links (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    transaction_id INTEGER UNIQUE NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
    category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// migrationHoldings stores investment positions per account. Unlike
// transactions, holdings are mutable snapshots upserted by
// (account_id, security_id) on every sync.
const migrationHoldings = `
CREATE TABLE IF NOT EXISTS holdings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id INTEGER NOT NULL REFERENCES linked_accounts(id) ON DELETE CASCADE,
    security_id TEXT NOT NULL,
    external_id TEXT,
    symbol TEXT,
    name TEXT,
    quantity REAL NOT NULL,
    price REAL,
    value REAL NOT NULL,
    currency TEXT DEFAULT 'USD',
    last_updated DATETIME DEFAULT CURRENT_TIMESTAMP,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(account_id, security_id)
);
`

// migrationSyncJobs tracks ingestion runs. Background syncs persist their
// outcome here so clients can poll instead of the failure being silent.
const migrationSyncJobs = `
CREATE TABLE IF NOT EXISTS sync_jobs (
    id TEXT PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    item_type TEXT NOT NULL,
    trigger_kind TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'started',
    accounts_synced INTEGER DEFAULT 0,
    transactions_synced INTEGER DEFAULT 0,
    holdings_synced INTEGER DEFAULT 0,
    error_message TEXT,
    started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    completed_at DATETIME,
    duration_ms INTEGER
);
`

const migrationIndexes = `
CREATE INDEX IF NOT EXISTS idx_categories_user ON categories(user_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_user_name ON categories(user_id, name);
CREATE INDEX IF NOT EXISTS idx_goals_user ON savings_goals(user_id);
CREATE INDEX IF NOT EXISTS idx_items_user ON provider_items(user_id);
CREATE INDEX IF NOT EXISTS idx_accounts_user ON linked_accounts(user_id);
CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id);
CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(posted_on);
CREATE INDEX IF NOT EXISTS idx_links_category ON category_links(category_id);
CREATE INDEX IF NOT EXISTS idx_holdings_account ON holdings(account_id);
CREATE INDEX IF NOT EXISTS idx_sync_jobs_user ON sync_jobs(user_id);
`
