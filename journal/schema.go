// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS enforcements (
	record_id TEXT PRIMARY KEY,
	at DATETIME NOT NULL,
	action_type TEXT NOT NULL,
	account_id TEXT NOT NULL,
	rule_id TEXT NOT NULL,
	reason TEXT NOT NULL,
	outcome TEXT NOT NULL,
	details TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_enforcements_account ON enforcements(account_id, at);
`
