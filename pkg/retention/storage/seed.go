package storage

import (
	"context"
	"fmt"
	"time"

	"jobboard-hq/custodian/pkg/retention"
)

// SeedDemo inserts a small dataset that exercises every sweep: an expired
// professor, an expired applicant with finalized and open applications, an
// admin, and records sitting inside the warning windows.
func SeedDemo(ctx context.Context, f Fixtures, now time.Time) error {
	old := now.AddDate(-2, 0, 0)
	warnApp := now.AddDate(0, 0, -170)
	warnAcc := now.AddDate(0, 0, -350)

	accounts := []*retention.Account{
		{ID: "demo-admin", Email: "admin@demo.invalid", FirstName: "Ada", LastName: "Admin",
			Roles: []retention.Role{retention.RoleAdmin}, LastActivityAt: old, CreatedAt: old},
		{ID: "demo-professor", Email: "prof@demo.invalid", FirstName: "Paul", LastName: "Prof",
			PreferredLanguage: "de", ResearchGroupID: "rg-demo",
			Roles: []retention.Role{retention.RoleProfessor}, LastActivityAt: old, CreatedAt: old},
		{ID: "demo-applicant", Email: "applicant@demo.invalid", FirstName: "Alex", LastName: "Applicant",
			PreferredLanguage: "en", Roles: []retention.Role{retention.RoleApplicant}, LastActivityAt: old, CreatedAt: old},
		{ID: "demo-warned", Email: "soon@demo.invalid", FirstName: "Sam", LastName: "Soon",
			Roles: []retention.Role{retention.RoleApplicant}, LastActivityAt: warnAcc, CreatedAt: old},
		{ID: "demo-active", Email: "active@demo.invalid", FirstName: "Nia", LastName: "Now",
			Roles: []retention.Role{retention.RoleApplicant}, LastActivityAt: now, CreatedAt: old},
	}
	for _, a := range accounts {
		if err := f.InsertAccount(ctx, a); err != nil {
			return fmt.Errorf("seed account %s: %w", a.ID, err)
		}
	}

	steps := []func() error{
		func() error {
			return f.InsertImage(ctx, &retention.Image{ID: "demo-banner", UploadedBy: "demo-professor", Type: retention.ImageJobBanner})
		},
		func() error {
			return f.InsertImage(ctx, &retention.Image{ID: "demo-avatar", UploadedBy: "demo-applicant", Type: retention.ImageProfile})
		},
		func() error {
			return f.InsertJob(ctx, &retention.Job{ID: "demo-job", SupervisingProfessorID: "demo-professor",
				Title: "Research assistant", State: retention.JobPublished, ImageID: "demo-banner"})
		},
		func() error {
			return f.InsertEmailTemplate(ctx, &retention.EmailTemplate{ID: "demo-template", CreatedBy: "demo-professor",
				ResearchGroupID: "rg-demo", Name: "Rejection"})
		},
		func() error {
			return f.InsertUserSetting(ctx, &retention.UserSetting{AccountID: "demo-applicant", Key: "theme", Value: "dark"})
		},
		func() error {
			return f.InsertEmailSetting(ctx, &retention.EmailSetting{AccountID: "demo-applicant",
				NotificationType: "APPLICATION_DATA_DELETION_WARNING", Enabled: true})
		},
		func() error {
			return f.InsertApplication(ctx, &retention.Application{ID: "demo-app-rejected", ApplicantID: "demo-applicant",
				JobID: "demo-job", State: retention.StateRejected, Motivation: "I like research",
				LastModifiedAt: old, CreatedAt: old})
		},
		func() error {
			return f.InsertApplication(ctx, &retention.Application{ID: "demo-app-sent", ApplicantID: "demo-applicant",
				JobID: "demo-job", State: retention.StateSent, Motivation: "Please", LastModifiedAt: old, CreatedAt: old})
		},
		func() error {
			return f.InsertApplication(ctx, &retention.Application{ID: "demo-app-warn", ApplicantID: "demo-warned",
				JobID: "demo-job", State: retention.StateAccepted, LastModifiedAt: warnApp, CreatedAt: warnApp})
		},
		func() error {
			return f.InsertDocument(ctx, &retention.Document{ID: "sha256-demo-cv", MimeType: "application/pdf", Size: 1024})
		},
		func() error {
			return f.InsertDictionaryEntry(ctx, &retention.DocumentDictionaryEntry{ID: "demo-dict-1",
				ApplicationID: "demo-app-rejected", DocumentID: "sha256-demo-cv", DocumentType: "CV"})
		},
		func() error {
			return f.InsertDictionaryEntry(ctx, &retention.DocumentDictionaryEntry{ID: "demo-dict-2",
				ApplicationID: "demo-app-sent", DocumentID: "sha256-demo-cv", DocumentType: "CV"})
		},
		func() error {
			return f.InsertCustomFieldAnswer(ctx, &retention.CustomFieldAnswer{ID: "demo-answer", ApplicationID: "demo-app-sent", Answer: "yes"})
		},
		func() error {
			return f.InsertReview(ctx, &retention.ApplicationReview{ID: "demo-review", ApplicationID: "demo-app-rejected",
				ReviewedBy: "demo-professor", Reason: "position filled"})
		},
		func() error {
			return f.InsertComment(ctx, &retention.InternalComment{ID: "demo-comment", ApplicationID: "demo-app-rejected",
				CreatedBy: "demo-professor", Message: "strong candidate"})
		},
		func() error {
			return f.InsertRating(ctx, &retention.Rating{ID: "demo-rating", ApplicationID: "demo-app-rejected", FromID: "demo-professor", Value: 4})
		},
		func() error {
			return f.InsertInterviewee(ctx, &retention.Interviewee{ID: "demo-interviewee", ApplicationID: "demo-app-sent"})
		},
		func() error {
			return f.InsertInterviewSlot(ctx, &retention.InterviewSlot{ID: "demo-slot", JobID: "demo-job",
				IntervieweeID: "demo-interviewee", StartsAt: old.AddDate(0, 0, 7)})
		},
	}
	for i, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("seed step %d: %w", i+1, err)
		}
	}
	return nil
}
