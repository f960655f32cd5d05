package postpilot

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/juniperhq/postpilot/catalog"
)

// ErrNotFound is returned when a post or settings row does not exist.
var ErrNotFound = errors.New("not found")

// failureCeiling is how many pipeline failures a post survives before
// it is parked in StatusFailed.
const failureCeiling = 5

// Store wraps a SQLite database and provides CRUD operations for blog
// posts and the settings singleton.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Enable WAL mode for concurrent read/write access, set a busy timeout
	// so writers wait instead of returning SQLITE_BUSY immediately, and tune
	// performance: synchronous=NORMAL is safe with WAL and avoids an fsync
	// per transaction; larger cache and mmap reduce disk I/O.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
		PRAGMA mmap_size=268435456;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'draft',
    keywords TEXT NOT NULL DEFAULT '[]',
    secondary_keywords TEXT NOT NULL DEFAULT '[]',
    context_description TEXT NOT NULL DEFAULT '',
    scheduled_date TEXT NOT NULL,
    intro_length INTEGER NOT NULL DEFAULT 150,
    section_length INTEGER NOT NULL DEFAULT 300,
    conclusion_length INTEGER NOT NULL DEFAULT 100,
    affiliate_links TEXT NOT NULL DEFAULT '[]',
    affiliate_images TEXT NOT NULL DEFAULT '[]',
    seo_title TEXT NOT NULL DEFAULT '',
    seo_description TEXT NOT NULL DEFAULT '',
    excerpt TEXT NOT NULL DEFAULT '',
    slug TEXT NOT NULL DEFAULT '',
    meta_tags TEXT NOT NULL DEFAULT '[]',
    wordpress_url TEXT NOT NULL DEFAULT '',
    generation_attempts INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS settings (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    test_mode INTEGER NOT NULL DEFAULT 0,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_due ON posts (status, scheduled_date);
`)
	return err
}

const postColumns = `id, title, content, status, keywords, secondary_keywords,
	context_description, scheduled_date, intro_length, section_length,
	conclusion_length, affiliate_links, affiliate_images, seo_title,
	seo_description, excerpt, slug, meta_tags, wordpress_url,
	generation_attempts, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (BlogPost, error) {
	var p BlogPost
	var status string
	var keywords, secondary, links, images, metaTags string
	var scheduled, created, updated string
	err := row.Scan(&p.ID, &p.Title, &p.Content, &status, &keywords, &secondary,
		&p.ContextDescription, &scheduled, &p.IntroLength, &p.SectionLength,
		&p.ConclusionLength, &links, &images, &p.SEOTitle,
		&p.SEODescription, &p.Excerpt, &p.Slug, &metaTags, &p.WordPressURL,
		&p.GenerationAttempts, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return BlogPost{}, ErrNotFound
		}
		return BlogPost{}, err
	}
	p.Status = PostStatus(status)
	for _, col := range []struct {
		raw string
		dst any
	}{
		{keywords, &p.Keywords},
		{secondary, &p.SecondaryKeywords},
		{links, &p.AffiliateLinks},
		{images, &p.AffiliateImages},
		{metaTags, &p.MetaTags},
	} {
		if err := json.Unmarshal([]byte(col.raw), col.dst); err != nil {
			return BlogPost{}, fmt.Errorf("decode post %s: %w", p.ID, err)
		}
	}
	if p.ScheduledDate, err = time.Parse(time.RFC3339, scheduled); err != nil {
		return BlogPost{}, fmt.Errorf("decode post %s: %w", p.ID, err)
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return BlogPost{}, fmt.Errorf("decode post %s: %w", p.ID, err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339, updated); err != nil {
		return BlogPost{}, fmt.Errorf("decode post %s: %w", p.ID, err)
	}
	return p, nil
}

func encodeJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// CreatePost inserts a new post. Missing fields get defaults: a fresh
// UUID, draft status, standard section lengths, and a slug derived from
// the primary keyword.
func (s *Store) CreatePost(p BlogPost) (BlogPost, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = StatusDraft
	}
	if p.IntroLength <= 0 {
		p.IntroLength = 150
	}
	if p.SectionLength <= 0 {
		p.SectionLength = 300
	}
	if p.ConclusionLength <= 0 {
		p.ConclusionLength = 100
	}
	if p.Slug == "" && len(p.Keywords) > 0 {
		p.Slug = Slugify(p.Keywords[0])
	}
	if p.ScheduledDate.IsZero() {
		p.ScheduledDate = time.Now().UTC()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Keywords == nil {
		p.Keywords = []string{}
	}
	_, err := s.db.Exec(`INSERT INTO posts (`+postColumns+`) VALUES
		(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Content, string(p.Status), encodeJSON(p.Keywords),
		encodeJSON(p.SecondaryKeywords), p.ContextDescription,
		p.ScheduledDate.Format(time.RFC3339), p.IntroLength, p.SectionLength,
		p.ConclusionLength, encodeJSON(p.AffiliateLinks),
		encodeJSON(p.AffiliateImages), p.SEOTitle, p.SEODescription,
		p.Excerpt, p.Slug, encodeJSON(p.MetaTags), p.WordPressURL,
		p.GenerationAttempts, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return BlogPost{}, err
	}
	return p, nil
}

// GetPost returns a single post by id.
func (s *Store) GetPost(id string) (BlogPost, error) {
	row := s.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	return scanPost(row)
}

// ListPosts returns all posts ordered by scheduled date descending.
// If status is non-empty, results are filtered to that status.
func (s *Store) ListPosts(status PostStatus) ([]BlogPost, error) {
	var rows *sql.Rows
	var err error
	if status == "" {
		rows, err = s.db.Query(`SELECT ` + postColumns + ` FROM posts ORDER BY scheduled_date DESC`)
	} else {
		rows, err = s.db.Query(`SELECT `+postColumns+` FROM posts WHERE status = ? ORDER BY scheduled_date DESC`, string(status))
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []BlogPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// DuePosts returns draft posts whose scheduled date has passed and that
// still lack generated content or a title, oldest first.
func (s *Store) DuePosts(now time.Time) ([]BlogPost, error) {
	rows, err := s.db.Query(`SELECT `+postColumns+` FROM posts
		WHERE status = ? AND scheduled_date <= ? AND (content = '' OR title = '')
		ORDER BY scheduled_date ASC`,
		string(StatusDraft), now.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []BlogPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// UpdatePost applies a partial patch to a post and returns the updated row.
func (s *Store) UpdatePost(id string, patch PostPatch) (BlogPost, error) {
	p, err := s.GetPost(id)
	if err != nil {
		return BlogPost{}, err
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Content != nil {
		p.Content = *patch.Content
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Keywords != nil {
		p.Keywords = *patch.Keywords
	}
	if patch.SecondaryKeywords != nil {
		p.SecondaryKeywords = *patch.SecondaryKeywords
	}
	if patch.ContextDescription != nil {
		p.ContextDescription = *patch.ContextDescription
	}
	if patch.ScheduledDate != nil {
		p.ScheduledDate = *patch.ScheduledDate
	}
	if patch.IntroLength != nil {
		p.IntroLength = *patch.IntroLength
	}
	if patch.SectionLength != nil {
		p.SectionLength = *patch.SectionLength
	}
	if patch.ConclusionLength != nil {
		p.ConclusionLength = *patch.ConclusionLength
	}
	if patch.AffiliateLinks != nil {
		p.AffiliateLinks = *patch.AffiliateLinks
	}
	if patch.AffiliateImages != nil {
		p.AffiliateImages = *patch.AffiliateImages
	}
	if patch.SEOTitle != nil {
		p.SEOTitle = *patch.SEOTitle
	}
	if patch.SEODescription != nil {
		p.SEODescription = *patch.SEODescription
	}
	if patch.Excerpt != nil {
		p.Excerpt = *patch.Excerpt
	}
	if patch.Slug != nil {
		p.Slug = *patch.Slug
	}
	if patch.MetaTags != nil {
		p.MetaTags = *patch.MetaTags
	}
	p.UpdatedAt = time.Now().UTC()
	return p, s.savePost(p)
}

func (s *Store) savePost(p BlogPost) error {
	_, err := s.db.Exec(`UPDATE posts SET title = ?, content = ?, status = ?,
		keywords = ?, secondary_keywords = ?, context_description = ?,
		scheduled_date = ?, intro_length = ?, section_length = ?,
		conclusion_length = ?, affiliate_links = ?, affiliate_images = ?,
		seo_title = ?, seo_description = ?, excerpt = ?, slug = ?,
		meta_tags = ?, wordpress_url = ?, generation_attempts = ?,
		updated_at = ? WHERE id = ?`,
		p.Title, p.Content, string(p.Status), encodeJSON(p.Keywords),
		encodeJSON(p.SecondaryKeywords), p.ContextDescription,
		p.ScheduledDate.Format(time.RFC3339), p.IntroLength, p.SectionLength,
		p.ConclusionLength, encodeJSON(p.AffiliateLinks),
		encodeJSON(p.AffiliateImages), p.SEOTitle, p.SEODescription,
		p.Excerpt, p.Slug, encodeJSON(p.MetaTags), p.WordPressURL,
		p.GenerationAttempts, p.UpdatedAt.Format(time.RFC3339), p.ID)
	return err
}

// DeletePost removes a post by id.
func (s *Store) DeletePost(id string) error {
	res, err := s.db.Exec(`DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByKeyword removes all non-published posts whose primary keyword
// matches, and reports how many were removed.
func (s *Store) DeleteByKeyword(keyword string) (int, error) {
	posts, err := s.ListPosts("")
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, p := range posts {
		if p.Status == StatusPublished {
			continue
		}
		if len(p.Keywords) == 0 || p.Keywords[0] != keyword {
			continue
		}
		if err := s.DeletePost(p.ID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// SetStatus updates just the status column.
func (s *Store) SetStatus(id string, status PostStatus) error {
	res, err := s.db.Exec(`UPDATE posts SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordFailure increments a post's failure count and returns the post
// to draft so the next tick retries it. Once the count reaches the
// ceiling the post is parked as failed instead.
func (s *Store) RecordFailure(id string) (PostStatus, error) {
	p, err := s.GetPost(id)
	if err != nil {
		return "", err
	}
	p.GenerationAttempts++
	p.Status = StatusDraft
	if p.GenerationAttempts >= failureCeiling {
		p.Status = StatusFailed
	}
	p.UpdatedAt = time.Now().UTC()
	if err := s.savePost(p); err != nil {
		return "", err
	}
	return p.Status, nil
}

// SavePublishResult stores the generated article, resolved images, and
// remote URL, marks the post published, and resets the failure count.
func (s *Store) SavePublishResult(id string, p BlogPost, images []catalog.Image, wordpressURL string) error {
	p.ID = id
	p.AffiliateImages = images
	p.WordPressURL = wordpressURL
	p.Status = StatusPublished
	p.GenerationAttempts = 0
	p.UpdatedAt = time.Now().UTC()
	return s.savePost(p)
}

// GetSettings returns the settings singleton, creating a default row on
// first access.
func (s *Store) GetSettings() (Settings, error) {
	var testMode int
	var updated string
	err := s.db.QueryRow(`SELECT test_mode, updated_at FROM settings WHERE id = 1`).
		Scan(&testMode, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		st := Settings{UpdatedAt: time.Now().UTC()}
		return st, s.SaveSettings(st)
	}
	if err != nil {
		return Settings{}, err
	}
	ts, err := time.Parse(time.RFC3339, updated)
	if err != nil {
		return Settings{}, err
	}
	return Settings{TestMode: testMode == 1, UpdatedAt: ts}, nil
}

// SaveSettings upserts the settings singleton.
func (s *Store) SaveSettings(st Settings) error {
	testMode := 0
	if st.TestMode {
		testMode = 1
	}
	_, err := s.db.Exec(`INSERT INTO settings (id, test_mode, updated_at) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET test_mode = excluded.test_mode, updated_at = excluded.updated_at`,
		testMode, time.Now().UTC().Format(time.RFC3339))
	return err
}
