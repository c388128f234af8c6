package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bluesky-social/chatmod/chatmod/settings"

	"gorm.io/gorm"
)

// Configuration store backed by the administrative service's SQL database. Reads only, except for appending violation records.
type SQLConfigStore struct {
	db *gorm.DB
	// overrideable for tests
	Now func() time.Time
}

var _ ConfigStore = (*SQLConfigStore)(nil)

type FilterSettingsRow struct {
	CommunityID            string `gorm:"primaryKey"`
	ProfanityEnabled       *bool
	SpamEnabled            *bool
	URLBlockingEnabled     *bool
	UseDefaultProfanity    *bool
	UseDefaultSpamPatterns *bool
	// JSON object, severity to action
	SeverityAction  string
	StrikePolicy    string
	AutoTimeout     *bool
	TimeoutDuration *int
	LogViolations   *bool
	SpamThreshold   *int
	UpdatedAt       time.Time
}

func (FilterSettingsRow) TableName() string { return "filter_settings" }

type URLSettingsRow struct {
	CommunityID      string `gorm:"primaryKey"`
	AllowAllURLs     bool
	RequireHTTPS     bool
	BlockIPAddresses bool
	BlockShorteners  bool
	// JSON arrays of strings
	AllowedDomains    string
	BlockedDomains    string
	TrustedShorteners string
	UpdatedAt         time.Time
}

func (URLSettingsRow) TableName() string { return "url_settings" }

type WordRow struct {
	ID               uint   `gorm:"primarykey"`
	CommunityID      string `gorm:"index"`
	Term             string
	Action           string
	SeverityCategory string
	CreatedAt        time.Time
}

func (WordRow) TableName() string { return "word_entries" }

type SpamPatternRow struct {
	ID               uint   `gorm:"primarykey"`
	CommunityID      string `gorm:"index"`
	Pattern          string
	Action           string
	ConfidenceWeight float64
	CreatedAt        time.Time
}

func (SpamPatternRow) TableName() string { return "spam_patterns" }

type WhitelistRow struct {
	ID          uint   `gorm:"primarykey"`
	CommunityID string `gorm:"index:idx_whitelist_member"`
	UserID      string `gorm:"index:idx_whitelist_member"`
	ExpiresAt   *time.Time
	CreatedAt   time.Time
}

func (WhitelistRow) TableName() string { return "whitelist_entries" }

type ViolationRow struct {
	ID          uint   `gorm:"primarykey"`
	CommunityID string `gorm:"index"`
	UserID      string `gorm:"index"`
	Platform    string
	Message     string
	FilterType  string
	Severity    string
	Action      string
	// JSON arrays of strings
	Violations  string
	BlockedURLs string
	SpamScore   int
	CreatedAt   time.Time
}

func (ViolationRow) TableName() string { return "violations" }

func NewSQLConfigStore(db *gorm.DB) *SQLConfigStore {
	return &SQLConfigStore{
		db:  db,
		Now: time.Now,
	}
}

// Creates or updates tables. The administrative service normally owns the schema; this is for development and tests.
func (s *SQLConfigStore) Migrate() error {
	return s.db.AutoMigrate(
		&FilterSettingsRow{},
		&URLSettingsRow{},
		&WordRow{},
		&SpamPatternRow{},
		&WhitelistRow{},
		&ViolationRow{},
	)
}

func (s *SQLConfigStore) GetSettings(ctx context.Context, communityID string) (*settings.Overrides, error) {
	var row FilterSettingsRow
	if err := s.db.WithContext(ctx).First(&row, "community_id = ?", communityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetching filter settings: %w", err)
	}

	o := settings.Overrides{
		ProfanityEnabled:       row.ProfanityEnabled,
		SpamEnabled:            row.SpamEnabled,
		URLBlockingEnabled:     row.URLBlockingEnabled,
		UseDefaultProfanity:    row.UseDefaultProfanity,
		UseDefaultSpamPatterns: row.UseDefaultSpamPatterns,
		AutoTimeout:            row.AutoTimeout,
		TimeoutDuration:        row.TimeoutDuration,
		LogViolations:          row.LogViolations,
		SpamThreshold:          row.SpamThreshold,
	}
	if row.SeverityAction != "" {
		if err := json.Unmarshal([]byte(row.SeverityAction), &o.SeverityAction); err != nil {
			return nil, fmt.Errorf("parsing severity action map for %s: %w", communityID, err)
		}
	}
	if row.StrikePolicy != "" {
		o.StrikePolicy = json.RawMessage(row.StrikePolicy)
	}
	return &o, nil
}

func (s *SQLConfigStore) GetWords(ctx context.Context, communityID string) ([]WordEntry, error) {
	var rows []WordRow
	if err := s.db.WithContext(ctx).Where("community_id = ?", communityID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetching word entries: %w", err)
	}
	out := make([]WordEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, WordEntry{
			CommunityID:      r.CommunityID,
			Term:             r.Term,
			Action:           WordAction(r.Action),
			SeverityCategory: r.SeverityCategory,
		})
	}
	return out, nil
}

func (s *SQLConfigStore) GetSpamPatterns(ctx context.Context, communityID string) ([]SpamPattern, error) {
	var rows []SpamPatternRow
	if err := s.db.WithContext(ctx).Where("community_id = ?", communityID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetching spam patterns: %w", err)
	}
	out := make([]SpamPattern, 0, len(rows))
	for _, r := range rows {
		out = append(out, SpamPattern{
			CommunityID:      r.CommunityID,
			Pattern:          r.Pattern,
			Action:           PatternAction(r.Action),
			ConfidenceWeight: r.ConfidenceWeight,
		})
	}
	return out, nil
}

func (s *SQLConfigStore) GetURLSettings(ctx context.Context, communityID string) (*settings.URLSettings, error) {
	var row URLSettingsRow
	if err := s.db.WithContext(ctx).First(&row, "community_id = ?", communityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetching url settings: %w", err)
	}
	u := settings.URLSettings{
		AllowAllURLs:     row.AllowAllURLs,
		RequireHTTPS:     row.RequireHTTPS,
		BlockIPAddresses: row.BlockIPAddresses,
		BlockShorteners:  row.BlockShorteners,
	}
	for _, f := range []struct {
		raw string
		dst *[]string
	}{
		{row.AllowedDomains, &u.AllowedDomains},
		{row.BlockedDomains, &u.BlockedDomains},
		{row.TrustedShorteners, &u.TrustedShorteners},
	} {
		if f.raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return nil, fmt.Errorf("parsing url domain list for %s: %w", communityID, err)
		}
	}
	u = settings.NormalizeURLSettings(u)
	return &u, nil
}

func (s *SQLConfigStore) IsUserWhitelisted(ctx context.Context, userID, communityID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&WhitelistRow{}).
		Where("community_id = ? AND user_id = ? AND (expires_at IS NULL OR expires_at > ?)", communityID, userID, s.Now().UTC()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking whitelist: %w", err)
	}
	return count > 0, nil
}

func (s *SQLConfigStore) LogViolation(ctx context.Context, rec ViolationRecord) error {
	violations, err := json.Marshal(nonNil(rec.Violations))
	if err != nil {
		return err
	}
	blocked, err := json.Marshal(nonNil(rec.BlockedURLs))
	if err != nil {
		return err
	}
	row := ViolationRow{
		CommunityID: rec.CommunityID,
		UserID:      rec.UserID,
		Platform:    rec.Platform,
		Message:     rec.Message,
		FilterType:  rec.FilterType,
		Severity:    rec.Severity,
		Action:      rec.Action,
		Violations:  string(violations),
		BlockedURLs: string(blocked),
		SpamScore:   rec.SpamScore,
		CreatedAt:   rec.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("inserting violation: %w", err)
	}
	return nil
}

func nonNil(l []string) []string {
	if l == nil {
		return []string{}
	}
	return l
}
