package postgres

// Migrations — SQL-миграции, встроенные в код для упрощения деплоя.
// Номера версий никогда не переиспользуются: новая схема = новая версия.
var Migrations = []Migration{
	{1, "members", migration001Members},
	{2, "photos", migration002Photos},
	{3, "ratings", migration003Ratings},
	{4, "economy", migration004Economy},
	{5, "settings", migration005Settings},
	{6, "results", migration006Results},
	{7, "admin", migration007Admin},
}

var migration001Members = `
CREATE TABLE IF NOT EXISTS members (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT UNIQUE NOT NULL,
    username VARCHAR(255),
    first_name VARCHAR(255) NOT NULL DEFAULT '',
    city VARCHAR(128),
    country VARCHAR(128),
    premium_until TIMESTAMPTZ,
    rank_points INTEGER NOT NULL DEFAULT 0,
    rank_code VARCHAR(16) NOT NULL DEFAULT 'beginner',
    rank_updated_at TIMESTAMPTZ,
    is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_members_city ON members(city);
CREATE INDEX IF NOT EXISTS idx_members_country ON members(country);

CREATE TABLE IF NOT EXISTS referrals (
    id BIGSERIAL PRIMARY KEY,
    inviter_id BIGINT NOT NULL REFERENCES members(user_id),
    invitee_id BIGINT UNIQUE NOT NULL REFERENCES members(user_id),
    qualified BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_referrals_inviter ON referrals(inviter_id) WHERE qualified;
`

var migration002Photos = `
CREATE TABLE IF NOT EXISTS photos (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES members(user_id),
    file_id TEXT NOT NULL,
    title VARCHAR(255) NOT NULL DEFAULT '',
    tag VARCHAR(64),
    status VARCHAR(16) NOT NULL DEFAULT 'active'
        CHECK (status IN ('active', 'archived', 'deleted')),
    moderation_status VARCHAR(16) NOT NULL DEFAULT 'active'
        CHECK (moderation_status IN ('active', 'pending', 'rejected')),
    ratings_enabled BOOLEAN NOT NULL DEFAULT TRUE,
    day_key VARCHAR(10) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMPTZ,
    deleted_at TIMESTAMPTZ,
    votes_count INTEGER NOT NULL DEFAULT 0 CHECK (votes_count >= 0),
    sum_score BIGINT NOT NULL DEFAULT 0,
    avg_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    views_count INTEGER NOT NULL DEFAULT 0,
    rank_dirty BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_photos_feed ON photos(votes_count, created_at DESC)
    WHERE status = 'active' AND moderation_status = 'active';
CREATE INDEX IF NOT EXISTS idx_photos_user ON photos(user_id);
CREATE INDEX IF NOT EXISTS idx_photos_day_key ON photos(day_key);

CREATE TABLE IF NOT EXISTS photo_reports (
    id BIGSERIAL PRIMARY KEY,
    photo_id BIGINT NOT NULL REFERENCES photos(id),
    reporter_id BIGINT NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'resolved')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_photo_reports_pending ON photo_reports(photo_id) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS comments (
    id BIGSERIAL PRIMARY KEY,
    photo_id BIGINT NOT NULL REFERENCES photos(id),
    user_id BIGINT NOT NULL,
    text TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_comments_photo ON comments(photo_id);
`

var migration003Ratings = `
CREATE TABLE IF NOT EXISTS ratings (
    id BIGSERIAL PRIMARY KEY,
    photo_id BIGINT NOT NULL REFERENCES photos(id),
    user_id BIGINT NOT NULL,
    value SMALLINT NOT NULL CHECK (value BETWEEN 1 AND 10),
    source VARCHAR(16) NOT NULL DEFAULT 'normal' CHECK (source IN ('normal', 'link')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (photo_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_ratings_user ON ratings(user_id);

CREATE TABLE IF NOT EXISTS photo_views (
    photo_id BIGINT NOT NULL REFERENCES photos(id),
    viewer_id BIGINT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (photo_id, viewer_id)
);
CREATE INDEX IF NOT EXISTS idx_photo_views_viewer ON photo_views(viewer_id);

CREATE TABLE IF NOT EXISTS feed_rotation (
    viewer_id BIGINT PRIMARY KEY,
    seq BIGINT NOT NULL DEFAULT 0,
    last_author_id BIGINT,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS global_rating_cache (
    id SMALLINT PRIMARY KEY CHECK (id = 1),
    mean DOUBLE PRECISION NOT NULL,
    ratings_count BIGINT NOT NULL,
    computed_at TIMESTAMPTZ NOT NULL
);
`

var migration004Economy = `
CREATE TABLE IF NOT EXISTS economy_accounts (
    user_id BIGINT PRIMARY KEY,
    credits BIGINT NOT NULL DEFAULT 0 CHECK (credits >= 0),
    show_tokens BIGINT NOT NULL DEFAULT 0 CHECK (show_tokens >= 0),
    last_active_at TIMESTAMPTZ,
    counters_day VARCHAR(10),
    votes_today INTEGER NOT NULL DEFAULT 0,
    happy_votes_today INTEGER NOT NULL DEFAULT 0,
    impressions_today INTEGER NOT NULL DEFAULT 0,
    total_credits_earned BIGINT NOT NULL DEFAULT 0,
    total_tokens_spent BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_economy_accounts_funded ON economy_accounts(user_id)
    WHERE credits > 0 OR show_tokens > 0;

CREATE TABLE IF NOT EXISTS economy_log (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    kind VARCHAR(32) NOT NULL,
    credits_delta BIGINT NOT NULL DEFAULT 0,
    tokens_delta BIGINT NOT NULL DEFAULT 0,
    note TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_economy_log_user ON economy_log(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS economy_daily_grants (
    day VARCHAR(10) NOT NULL,
    user_id BIGINT NOT NULL,
    amount BIGINT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (day, user_id)
);

CREATE TABLE IF NOT EXISTS author_vote_counters (
    day VARCHAR(10) NOT NULL,
    voter_id BIGINT NOT NULL,
    author_id BIGINT NOT NULL,
    count INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (day, voter_id, author_id)
);
`

var migration005Settings = `
CREATE TABLE IF NOT EXISTS economy_settings (
    key VARCHAR(64) PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

var migration006Results = `
CREATE TABLE IF NOT EXISTS results_entries (
    period VARCHAR(16) NOT NULL,
    period_key VARCHAR(16) NOT NULL,
    scope_type VARCHAR(16) NOT NULL,
    scope_key VARCHAR(128) NOT NULL,
    kind VARCHAR(32) NOT NULL,
    place INTEGER NOT NULL CHECK (place > 0),
    photo_id BIGINT,
    user_id BIGINT,
    score DOUBLE PRECISION,
    payload JSONB NOT NULL DEFAULT '{}'::jsonb,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (period, period_key, scope_type, scope_key, kind, place)
);
CREATE INDEX IF NOT EXISTS idx_results_entries_photo ON results_entries(photo_id);

CREATE TABLE IF NOT EXISTS results_status (
    period VARCHAR(16) NOT NULL,
    period_key VARCHAR(16) NOT NULL,
    scope_type VARCHAR(16) NOT NULL,
    scope_key VARCHAR(128) NOT NULL,
    kind VARCHAR(32) NOT NULL,
    state VARCHAR(16) NOT NULL DEFAULT 'not_computed'
        CHECK (state IN ('not_computed', 'computed')),
    computed_at TIMESTAMPTZ,
    version INTEGER NOT NULL DEFAULT 0,
    items INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (period, period_key, scope_type, scope_key, kind)
);

CREATE TABLE IF NOT EXISTS results_wins (
    scope_type VARCHAR(16) NOT NULL,
    scope_key VARCHAR(128) NOT NULL,
    period VARCHAR(16) NOT NULL,
    period_key VARCHAR(16) NOT NULL,
    user_id BIGINT NOT NULL,
    photo_id BIGINT NOT NULL,
    win_date DATE NOT NULL,
    PRIMARY KEY (scope_type, scope_key, period, period_key)
);
CREATE INDEX IF NOT EXISTS idx_results_wins_user ON results_wins(scope_type, scope_key, user_id, win_date);
`

var migration007Admin = `
CREATE TABLE IF NOT EXISTS admin_sessions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    session_token VARCHAR(255) UNIQUE NOT NULL,
    authenticated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMPTZ NOT NULL,
    last_activity TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    is_active BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_admin_sessions_user_id ON admin_sessions(user_id);
CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    attempt_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    success BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_admin_login_attempts_user ON admin_login_attempts(user_id, attempt_time DESC);
`
