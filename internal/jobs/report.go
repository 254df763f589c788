package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"libris/internal/archive"
	"libris/internal/database"
	"libris/internal/mailer"
	"libris/internal/model"
	"libris/internal/report"
	"libris/internal/store"
	"time"

	"github.com/rs/zerolog/log"
)

// ReportJob drains batch status records, renders each into a PDF
// summary, and emails it to the owning user. Unlike the ingestion job,
// a failed record is left in place so the next pass retries it; every
// failed attempt writes its own report error record.
type ReportJob struct {
	store            store.Store
	users            database.UserDatabase
	renderer         report.Renderer
	mailer           mailer.Mailer
	archiver         archive.Archiver
	defaultRecipient string
}

// NewReportJob creates the report job. archiver may be nil to disable
// PDF retention. defaultRecipient may be empty, in which case reports
// for unresolvable users fail instead of being redirected.
func NewReportJob(st store.Store, users database.UserDatabase, renderer report.Renderer,
	m mailer.Mailer, archiver archive.Archiver, defaultRecipient string) *ReportJob {
	return &ReportJob{
		store:            st,
		users:            users,
		renderer:         renderer,
		mailer:           m,
		archiver:         archiver,
		defaultRecipient: defaultRecipient,
	}
}

func (j *ReportJob) Name() string {
	return "report"
}

// Run performs one pass over every pending status record.
func (j *ReportJob) Run(ctx context.Context) {
	keys, err := j.store.Scan(ctx, model.BatchStatusPrefix+":")
	if err != nil {
		log.Error().Err(err).Msg("Failed to scan status records")
		return
	}

	if len(keys) == 0 {
		return
	}

	log.Info().Int("reports", len(keys)).Msg("Processing status records")

	for _, key := range keys {
		userID, ok := model.UserIDFromKey(key)
		if !ok {
			log.Warn().Str("key", key).Msg("Skipping malformed status key")
			continue
		}

		if err := j.processStatus(ctx, key); err != nil {
			log.Error().
				Err(err).
				Str("userId", userID).
				Str("key", key).
				Msg("Report delivery failed, status record left for retry")
			j.recordReportError(ctx, userID, key, err)
		}
	}
}

func (j *ReportJob) processStatus(ctx context.Context, key string) error {
	raw, err := j.store.Get(ctx, key)
	if err == store.ErrNotFound {
		// Raced with a concurrent deleter; tolerated silently
		return nil
	} else if err != nil {
		return err
	}

	var status model.BatchStatus
	if err := json.Unmarshal(raw, &status); err != nil || status.UserID == "" {
		// Malformed records are discarded, not retried
		log.Warn().Str("key", key).Msg("Dropping malformed status record")
		if delErr := j.store.Delete(ctx, key); delErr != nil {
			log.Error().Err(delErr).Str("key", key).Msg("Failed to delete malformed status record")
		}
		return nil
	}

	email, err := j.resolveEmail(ctx, status.UserID)
	if err != nil {
		return err
	}

	pdf, err := j.renderer.Render(status)
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if j.archiver != nil {
		name := fmt.Sprintf("%s-%d.pdf", status.UserID, status.Timestamp.UnixMilli())
		if _, err := j.archiver.StoreReport(ctx, name, pdf); err != nil {
			// Retention is best effort; the report still goes out
			log.Warn().Err(err).Str("userId", status.UserID).Msg("Failed to archive report")
		}
	}

	msg := mailer.Message{
		To:             email,
		Subject:        report.EmailSubject(status),
		HTMLBody:       report.EmailBody(status),
		AttachmentName: "bulk-upload-report.pdf",
		Attachment:     pdf,
	}

	if err := j.mailer.Send(msg); err != nil {
		return err
	}

	// Deleted only after a successful send; any earlier failure leaves
	// the record for the next pass
	if err := j.store.Delete(ctx, key); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to delete delivered status record")
	}

	log.Info().
		Str("userId", status.UserID).
		Str("to", email).
		Int("total", status.TotalBooks).
		Int("failed", status.FailureCount).
		Msg("Report delivered")

	return nil
}

// resolveEmail finds the contact address for a user: the user record
// first, then the cached address, then the configured default
// recipient. The default is a deliberate misdelivery risk accepted at
// configuration time.
func (j *ReportJob) resolveEmail(ctx context.Context, userID string) (string, error) {
	user, err := j.users.GetUserByID(ctx, userID)
	if err == nil && user.Email != "" {
		return user.Email, nil
	}
	if err != nil && err != database.ErrUserNotFound {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	cached, err := j.store.Get(ctx, model.UserEmailKey(userID))
	if err == nil && len(cached) > 0 {
		return string(cached), nil
	}
	if err != nil && err != store.ErrNotFound {
		return "", fmt.Errorf("failed to read cached email: %w", err)
	}

	if j.defaultRecipient != "" {
		log.Warn().
			Str("userId", userID).
			Str("recipient", j.defaultRecipient).
			Msg("No address for user, falling back to default recipient")
		return j.defaultRecipient, nil
	}

	return "", fmt.Errorf("no email address for user %s", userID)
}

func (j *ReportJob) recordReportError(ctx context.Context, userID, statusKey string, cause error) {
	reportErr := model.ReportError{
		UserID:    userID,
		StatusKey: statusKey,
		Error:     cause.Error(),
		Retries:   0,
		Timestamp: time.Now(),
	}

	payload, err := json.Marshal(reportErr)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal report error record")
		return
	}

	key := model.ReportErrorKey(userID, reportErr.Timestamp)
	if err := j.store.Set(ctx, key, payload, model.RecordTTL); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to write report error record")
	}
}
