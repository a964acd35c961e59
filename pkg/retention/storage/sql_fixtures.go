package storage

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"jobboard-hq/custodian/pkg/retention"
)

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *SQLStore) insert(ctx context.Context, b sq.InsertBuilder, op string) error {
	_, err := s.exec(ctx, op, b)
	return err
}

func (s *SQLStore) InsertAccount(ctx context.Context, a *retention.Account) error {
	return s.WithinTx(ctx, func(tx Tx) error {
		t := tx.(*sqlTx)
		if _, err := t.exec(ctx, "insert_account", t.sb.Insert("accounts").
			Columns(accountColumns...).
			Values(a.ID, a.Email, a.FirstName, a.LastName, a.PreferredLanguage,
				nullString(a.ResearchGroupID), dbTime(a.LastActivityAt), dbTime(a.CreatedAt))); err != nil {
			return err
		}
		for _, role := range a.Roles {
			if _, err := t.exec(ctx, "insert_account_role", t.sb.Insert("account_roles").
				Columns("account_id", "role").Values(a.ID, string(role))); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLStore) InsertImage(ctx context.Context, img *retention.Image) error {
	return s.insert(ctx, s.sb.Insert("images").
		Columns("id", "uploaded_by", "image_type").
		Values(img.ID, img.UploadedBy, string(img.Type)), "insert_image")
}

func (s *SQLStore) InsertJob(ctx context.Context, j *retention.Job) error {
	return s.insert(ctx, s.sb.Insert("jobs").
		Columns("id", "supervising_professor_id", "title", "state", "image_id").
		Values(j.ID, j.SupervisingProfessorID, j.Title, string(j.State), nullString(j.ImageID)), "insert_job")
}

func (s *SQLStore) InsertEmailTemplate(ctx context.Context, t *retention.EmailTemplate) error {
	return s.insert(ctx, s.sb.Insert("email_templates").
		Columns("id", "created_by", "research_group_id", "name").
		Values(t.ID, t.CreatedBy, t.ResearchGroupID, t.Name), "insert_email_template")
}

func (s *SQLStore) InsertUserSetting(ctx context.Context, us *retention.UserSetting) error {
	return s.insert(ctx, s.sb.Insert("user_settings").
		Columns("account_id", "setting_key", "setting_value").
		Values(us.AccountID, us.Key, us.Value), "insert_user_setting")
}

func (s *SQLStore) InsertEmailSetting(ctx context.Context, es *retention.EmailSetting) error {
	return s.insert(ctx, s.sb.Insert("email_settings").
		Columns("account_id", "notification_type", "enabled").
		Values(es.AccountID, es.NotificationType, es.Enabled), "insert_email_setting")
}

func (s *SQLStore) InsertApplication(ctx context.Context, a *retention.Application) error {
	return s.insert(ctx, s.sb.Insert("applications").
		Columns(applicationColumns...).
		Values(a.ID, a.ApplicantID, a.JobID, string(a.State), a.Motivation, a.SpecialSkills,
			a.Anonymized, dbTime(a.LastModifiedAt), dbTime(a.CreatedAt)), "insert_application")
}

func (s *SQLStore) InsertCustomFieldAnswer(ctx context.Context, a *retention.CustomFieldAnswer) error {
	return s.insert(ctx, s.sb.Insert("custom_field_answers").
		Columns("id", "application_id", "answer").
		Values(a.ID, a.ApplicationID, a.Answer), "insert_custom_field_answer")
}

func (s *SQLStore) InsertDocument(ctx context.Context, d *retention.Document) error {
	return s.insert(ctx, s.sb.Insert("documents").
		Columns("id", "mime_type", "size_bytes").
		Values(d.ID, d.MimeType, d.Size), "insert_document")
}

func (s *SQLStore) InsertDictionaryEntry(ctx context.Context, e *retention.DocumentDictionaryEntry) error {
	return s.insert(ctx, s.sb.Insert("document_dictionary").
		Columns("id", "application_id", "document_id", "document_type").
		Values(e.ID, e.ApplicationID, e.DocumentID, e.DocumentType), "insert_dictionary_entry")
}

func (s *SQLStore) InsertReview(ctx context.Context, r *retention.ApplicationReview) error {
	return s.insert(ctx, s.sb.Insert("application_reviews").
		Columns("id", "application_id", "reviewed_by", "reason").
		Values(r.ID, r.ApplicationID, r.ReviewedBy, r.Reason), "insert_review")
}

func (s *SQLStore) InsertComment(ctx context.Context, c *retention.InternalComment) error {
	return s.insert(ctx, s.sb.Insert("internal_comments").
		Columns("id", "application_id", "created_by", "message").
		Values(c.ID, c.ApplicationID, c.CreatedBy, c.Message), "insert_comment")
}

func (s *SQLStore) InsertRating(ctx context.Context, r *retention.Rating) error {
	return s.insert(ctx, s.sb.Insert("ratings").
		Columns("id", "application_id", "from_id", "rating").
		Values(r.ID, r.ApplicationID, r.FromID, r.Value), "insert_rating")
}

func (s *SQLStore) InsertInterviewee(ctx context.Context, iv *retention.Interviewee) error {
	return s.insert(ctx, s.sb.Insert("interviewees").
		Columns("id", "application_id").
		Values(iv.ID, iv.ApplicationID), "insert_interviewee")
}

func (s *SQLStore) InsertInterviewSlot(ctx context.Context, slot *retention.InterviewSlot) error {
	return s.insert(ctx, s.sb.Insert("interview_slots").
		Columns("id", "job_id", "interviewee_id", "starts_at").
		Values(slot.ID, slot.JobID, nullString(slot.IntervieweeID), dbTime(slot.StartsAt)), "insert_interview_slot")
}
