// Package migrations holds the embedded SQL migration assets consumed
// by the go_bindata migrate source.
package migrations

import (
	"fmt"
	"sort"
)

var assets = map[string][]byte{
	"001_init.up.sql": []byte(`
CREATE TABLE IF NOT EXISTS wallets (
    address    TEXT PRIMARY KEY,
    owner      TEXT NOT NULL,
    hsm_key_id TEXT NOT NULL,
    tenant_id  TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS wallets_tenant_id_idx ON wallets (tenant_id);

CREATE TABLE IF NOT EXISTS txns (
    hash         TEXT PRIMARY KEY,
    from_address TEXT NOT NULL,
    to_address   TEXT NOT NULL,
    value        TEXT NOT NULL,
    data         BLOB NOT NULL,
    nonce        INTEGER NOT NULL,
    status       TEXT NOT NULL,
    chain_id     INTEGER NOT NULL,
    tenant_id    TEXT NOT NULL DEFAULT '',
    created_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS txns_from_address_idx ON txns (from_address);
CREATE INDEX IF NOT EXISTS txns_tenant_id_idx ON txns (tenant_id);

CREATE TABLE IF NOT EXISTS wallet_nonce (
    address   TEXT NOT NULL,
    tenant_id TEXT NOT NULL DEFAULT '',
    chain_id  INTEGER NOT NULL,
    nonce     INTEGER NOT NULL,
    PRIMARY KEY (address, tenant_id, chain_id)
);

CREATE TABLE IF NOT EXISTS audit_log (
    id           TEXT PRIMARY KEY,
    action       TEXT NOT NULL,
    performed_by TEXT NOT NULL,
    target_id    TEXT NOT NULL,
    target_type  TEXT NOT NULL,
    tenant_id    TEXT NOT NULL DEFAULT '',
    metadata     TEXT NOT NULL DEFAULT '{}',
    created_at   INTEGER NOT NULL
);
`),
	"001_init.down.sql": []byte(`
DROP TABLE IF EXISTS audit_log;
DROP TABLE IF EXISTS wallet_nonce;
DROP TABLE IF EXISTS txns;
DROP TABLE IF EXISTS wallets;
`),
}

// Asset returns the content of the named migration.
func Asset(name string) ([]byte, error) {
	if data, ok := assets[name]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("asset %s not found", name)
}

// AssetNames returns the sorted names of all migrations.
func AssetNames() []string {
	names := make([]string, 0, len(assets))
	for name := range assets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
