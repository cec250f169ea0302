package storage

import (
	"context"
	"fmt"

	"SecFeed/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS interests (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS user_interests (
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	interest_id INTEGER NOT NULL REFERENCES interests(id),
	PRIMARY KEY (user_id, interest_id)
);

CREATE TABLE IF NOT EXISTS articles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	link TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL DEFAULT '',
	full_text TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	category TEXT,
	subcategory TEXT,
	is_article INTEGER NOT NULL DEFAULT 0,
	published_on TEXT,
	image_url TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS article_job_scores (
	article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
	job TEXT NOT NULL,
	score REAL NOT NULL CHECK (score >= 0 AND score <= 100),
	PRIMARY KEY (article_id, job)
);

CREATE TABLE IF NOT EXISTS article_interest_scores (
	article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
	interest_id INTEGER NOT NULL REFERENCES interests(id),
	score REAL NOT NULL CHECK (score >= 0 AND score <= 100),
	PRIMARY KEY (article_id, interest_id)
);

CREATE INDEX IF NOT EXISTS idx_article_job_scores_job ON article_job_scores(job, article_id);

CREATE TABLE IF NOT EXISTS telegram_recipients (
	user_id INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	chat_id INTEGER NOT NULL UNIQUE
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS interests (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	job TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS user_interests (
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	interest_id INTEGER NOT NULL REFERENCES interests(id),
	PRIMARY KEY (user_id, interest_id)
);

CREATE TABLE IF NOT EXISTS articles (
	id BIGSERIAL PRIMARY KEY,
	link TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL DEFAULT '',
	full_text TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	category TEXT,
	subcategory TEXT,
	is_article BOOLEAN NOT NULL DEFAULT FALSE,
	published_on TEXT,
	image_url TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS article_job_scores (
	article_id BIGINT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
	job TEXT NOT NULL,
	score DOUBLE PRECISION NOT NULL CHECK (score >= 0 AND score <= 100),
	PRIMARY KEY (article_id, job)
);

CREATE TABLE IF NOT EXISTS article_interest_scores (
	article_id BIGINT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
	interest_id INTEGER NOT NULL REFERENCES interests(id),
	score DOUBLE PRECISION NOT NULL CHECK (score >= 0 AND score <= 100),
	PRIMARY KEY (article_id, interest_id)
);

CREATE INDEX IF NOT EXISTS idx_article_job_scores_job ON article_job_scores(job, article_id);

CREATE TABLE IF NOT EXISTS telegram_recipients (
	user_id BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	chat_id BIGINT NOT NULL UNIQUE
);
`

// DefaultInterests are seeded on migrate; six per job, ids are stable.
var DefaultInterests = []domain.Interest{
	{ID: 1, Name: "Vulnerability Research & Exploit Development"},
	{ID: 2, Name: "Application Security & Secure Coding"},
	{ID: 3, Name: "Network Security & Firewalls"},
	{ID: 4, Name: "Cloud Security (AWS, Azure, GCP)"},
	{ID: 5, Name: "Identity & Access Management"},
	{ID: 6, Name: "Mobile Security & IoT"},
	{ID: 7, Name: "Frontend Frameworks (React, Vue, Angular)"},
	{ID: 8, Name: "Backend & APIs (Node, Python, Go)"},
	{ID: 9, Name: "Databases & Data Engineering"},
	{ID: 10, Name: "AI/ML & Machine Learning Tools"},
	{ID: 11, Name: "Mobile Development (iOS, Android, Flutter)"},
	{ID: 12, Name: "Game Development & Graphics"},
	{ID: 13, Name: "Containers & Orchestration (Docker, K8s)"},
	{ID: 14, Name: "CI/CD & Automation Pipelines"},
	{ID: 15, Name: "Cloud Infrastructure (AWS, Azure, GCP)"},
	{ID: 16, Name: "Monitoring & Observability"},
	{ID: 17, Name: "Infrastructure as Code (Terraform, Ansible)"},
	{ID: 18, Name: "Performance & Site Reliability"},
	{ID: 19, Name: "Linux Administration & Shell Scripting"},
	{ID: 20, Name: "Windows Server & Active Directory"},
	{ID: 21, Name: "Networking & DNS Management"},
	{ID: 22, Name: "Storage & Backup Solutions"},
	{ID: 23, Name: "Virtualization (VMware, Hyper-V)"},
	{ID: 24, Name: "Automation & Configuration Management"},
	{ID: 25, Name: "Threat Intelligence & Threat Hunting"},
	{ID: 26, Name: "Incident Response & Forensics"},
	{ID: 27, Name: "Security Operations & SIEM"},
	{ID: 28, Name: "Malware Analysis & Reverse Engineering"},
	{ID: 29, Name: "Penetration Testing & Red Teaming"},
	{ID: 30, Name: "Compliance & Risk Management"},
	{ID: 31, Name: "Cybersecurity & Privacy"},
	{ID: 32, Name: "Software Development & Programming"},
	{ID: 33, Name: "Cloud & Infrastructure"},
	{ID: 34, Name: "AI & Machine Learning"},
	{ID: 35, Name: "Data Science & Analytics"},
	{ID: 36, Name: "Web Technologies & Frameworks"},
}

// Migrate creates missing tables and seeds the interest catalogue.
func (s *Store) Migrate(ctx context.Context) error {
	schema := sqliteSchema
	if s.dialect == DialectPostgres {
		schema = postgresSchema
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	return s.SeedInterests(ctx, DefaultInterests)
}

// SeedInterests inserts interests that are not present yet; existing ids are left alone.
func (s *Store) SeedInterests(ctx context.Context, interests []domain.Interest) error {
	if len(interests) == 0 {
		return nil
	}

	insert := s.sq.Insert("interests").Columns("id", "name")
	for _, interest := range interests {
		insert = insert.Values(interest.ID, interest.Name)
	}

	query, args, err := insert.Suffix("ON CONFLICT (id) DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("build seed interests: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("seed interests: %w", err)
	}
	return nil
}
