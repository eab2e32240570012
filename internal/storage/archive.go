package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/deepdefend/deepdefend-cli/internal/api"
	"github.com/deepdefend/deepdefend-cli/internal/report"
)

const errArchiveNil = "archive is nil"

// Archive is the local sqlite record of completed analyses. It keeps the raw
// result payload alongside the normalized summary columns so past reports
// can be re-rendered and re-exported byte-identically.
type Archive struct {
	DB *gorm.DB
	db *sql.DB
}

// AnalysisRecord is one archived analysis. Score columns hold the same
// normalized [0,100] integers the report view displays.
type AnalysisRecord struct {
	ID            string `gorm:"primaryKey;type:varchar(36)"`
	AnalysisID    string `gorm:"uniqueIndex:idx_analysis_id" json:"analysis_id"`
	Filename      string `json:"filename"`
	Verdict       string `gorm:"index:idx_verdict" json:"verdict"`
	Confidence    int    `json:"confidence"`
	VideoScore    int    `json:"video_score"`
	AudioScore    int    `json:"audio_score"`
	CombinedScore int    `json:"combined_score"`
	VideoDuration float64 `json:"video_duration"`
	AnalyzedAt    string  `json:"analyzed_at"`
	RawResult     []byte  `json:"-"`
	CreatedAt     time.Time
}

// Result decodes the archived raw payload.
func (r *AnalysisRecord) Result() (*api.AnalysisResult, error) {
	var res api.AnalysisResult
	if err := json.Unmarshal(r.RawResult, &res); err != nil {
		return nil, fmt.Errorf("decoding archived result %s: %w", r.AnalysisID, err)
	}
	return &res, nil
}

// Open creates or opens the archive at path and migrates the schema.
func Open(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil && !os.IsExist(err) {
			return nil, fmt.Errorf("creating archive dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite archive: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&AnalysisRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &Archive{DB: db, db: sqlDB}, nil
}

func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// SaveResult archives a completed analysis. Saving the same analysis_id
// twice returns the existing record unchanged.
func (a *Archive) SaveResult(res *api.AnalysisResult, filename string) (*AnalysisRecord, error) {
	if a == nil || a.DB == nil {
		return nil, errors.New(errArchiveNil)
	}

	var existing AnalysisRecord
	err := a.DB.Where("analysis_id = ?", res.AnalysisID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("querying archive: %w", err)
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}

	if filename == "" {
		filename = res.Filename
	}

	normalized := report.Normalize(res)
	record := AnalysisRecord{
		ID:            uuid.NewString(),
		AnalysisID:    res.AnalysisID,
		Filename:      filename,
		Verdict:       res.Verdict,
		Confidence:    normalized.Confidence,
		VideoScore:    normalized.VideoScore,
		AudioScore:    normalized.AudioScore,
		CombinedScore: normalized.CombinedScore,
		AnalyzedAt:    res.Timestamp,
		RawResult:     raw,
	}
	if res.VideoInfo != nil && res.VideoInfo.Duration != nil {
		record.VideoDuration = *res.VideoInfo.Duration
	}

	if err := a.DB.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("creating archive record: %w", err)
	}
	return &record, nil
}

// ListRecent returns the newest records first.
func (a *Archive) ListRecent(limit int) ([]AnalysisRecord, error) {
	if a == nil || a.DB == nil {
		return nil, errors.New(errArchiveNil)
	}
	var records []AnalysisRecord
	q := a.DB.Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("listing archive: %w", err)
	}
	return records, nil
}

// GetByAnalysisID fetches one archived analysis.
func (a *Archive) GetByAnalysisID(analysisID string) (*AnalysisRecord, error) {
	if a == nil || a.DB == nil {
		return nil, errors.New(errArchiveNil)
	}
	var record AnalysisRecord
	if err := a.DB.Where("analysis_id = ?", analysisID).First(&record).Error; err != nil {
		return nil, fmt.Errorf("fetching %s from archive: %w", analysisID, err)
	}
	return &record, nil
}

// DeleteByAnalysisID removes one archived analysis.
func (a *Archive) DeleteByAnalysisID(analysisID string) error {
	if a == nil || a.DB == nil {
		return errors.New(errArchiveNil)
	}
	return a.DB.Where("analysis_id = ?", analysisID).Delete(&AnalysisRecord{}).Error
}

// Count reports the archive size.
func (a *Archive) Count() (int64, error) {
	if a == nil || a.DB == nil {
		return 0, errors.New(errArchiveNil)
	}
	var n int64
	if err := a.DB.Model(&AnalysisRecord{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
