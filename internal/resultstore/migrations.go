package resultstore

const schema = `
CREATE TABLE IF NOT EXISTS results (
    id TEXT PRIMARY KEY,
    engine TEXT NOT NULL,
    object TEXT NOT NULL,
    task TEXT NOT NULL,
    mjx BOOLEAN NOT NULL DEFAULT FALSE,
    dt REAL NOT NULL,
    status TEXT NOT NULL,
    drop_time REAL,
    video_path TEXT,
    timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_results_engine ON results(engine);
CREATE INDEX IF NOT EXISTS idx_results_status ON results(status);
CREATE INDEX IF NOT EXISTS idx_results_combo ON results(engine, object, task, mjx, dt);

CREATE TABLE IF NOT EXISTS sweeps (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    started_at TIMESTAMP,
    finished_at TIMESTAMP,
    runs_total INTEGER DEFAULT 0,
    runs_passed INTEGER DEFAULT 0
);
`
