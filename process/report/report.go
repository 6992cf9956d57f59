package report

import (
	"fmt"
	"io"
	"time"

	"partyscan/models"

	"gorm.io/gorm"
)

// Totals summarises one user's uploads within a month.
type Totals struct {
	Uploads int64
	Failed  int64
	Scans   int64
}

// MonthRange returns the UTC bounds [start, end) for month in YYYY-MM.
func MonthRange(month string) (time.Time, time.Time, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month format, expected YYYY-MM: %w", err)
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}

// Run writes a month-bounded upload report for username to w and optionally
// lists the matching uploads.
func Run(db *gorm.DB, w io.Writer, username, month string, list bool) error {
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return fmt.Errorf("user not found: %w", err)
	}
	start, end, err := MonthRange(month)
	if err != nil {
		return err
	}

	q := func() *gorm.DB {
		return db.Model(&models.Upload{}).Where("user_id = ? AND created_at >= ? AND created_at < ?", user.ID, start, end)
	}
	var t Totals
	if err := q().Count(&t.Uploads).Error; err != nil {
		return fmt.Errorf("count uploads: %w", err)
	}
	if err := q().Where("failed = ?", true).Count(&t.Failed).Error; err != nil {
		return fmt.Errorf("count failed: %w", err)
	}
	if err := q().Where("scan_id <> ''").Distinct("scan_id").Count(&t.Scans).Error; err != nil {
		return fmt.Errorf("count scans: %w", err)
	}

	fmt.Fprintf(w, "Report for user=%s month=%s (UTC):\n", user.Username, month)
	fmt.Fprintf(w, "  uploads=%d failed=%d scans=%d\n", t.Uploads, t.Failed, t.Scans)
	if user.MainCharacterName != "" {
		fmt.Fprintf(w, "  main=%s@%s\n", user.MainCharacterName, user.MainCharacterServer)
	}

	if list {
		var rows []models.Upload
		if err := q().Order("id").Find(&rows).Error; err != nil {
			return fmt.Errorf("fetch rows failed: %w", err)
		}
		for _, r := range rows {
			fmt.Fprintf(w, "%d|%s|%s|%t|%s|%s\n", r.ID, r.ScanID, r.FileName, r.Failed, r.FailedReason, r.CreatedAt.Format(time.RFC3339))
		}
	}
	return nil
}
