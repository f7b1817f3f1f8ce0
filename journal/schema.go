package journal

const Schema = `
CREATE TABLE IF NOT EXISTS worksheets (
	name TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS cells (
	worksheet TEXT NOT NULL REFERENCES worksheets(name),
	row INTEGER NOT NULL,
	col INTEGER NOT NULL,
	value TEXT NOT NULL,
	format TEXT NOT NULL DEFAULT '',
	entry_id TEXT NOT NULL,
	PRIMARY KEY (worksheet, row, col)
);

CREATE INDEX IF NOT EXISTS idx_cells_entry ON cells(entry_id);
`
