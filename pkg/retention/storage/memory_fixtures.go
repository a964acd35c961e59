package storage

import (
	"context"
	"fmt"

	"jobboard-hq/custodian/pkg/retention"
)

func (s *MemoryStore) insert(table, id string, check func(d *dataset) error, put func(d *dataset)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if check != nil {
		if err := check(s.data); err != nil {
			return retention.NewStorageError(memoryBackend, "insert_"+table, fmt.Errorf("%s %s: %w", table, id, err))
		}
	}
	put(s.data)
	return nil
}

func requireAccount(d *dataset, id string) error {
	if _, ok := d.accounts[id]; !ok {
		return fmt.Errorf("FOREIGN KEY constraint failed: account %s does not exist", id)
	}
	return nil
}

func requireApplication(d *dataset, id string) error {
	if _, ok := d.applications[id]; !ok {
		return fmt.Errorf("FOREIGN KEY constraint failed: application %s does not exist", id)
	}
	return nil
}

func (s *MemoryStore) InsertAccount(ctx context.Context, a *retention.Account) error {
	return s.insert("accounts", a.ID, nil, func(d *dataset) {
		c := copyAccount(a)
		c.LastActivityAt = dbTime(c.LastActivityAt)
		c.CreatedAt = dbTime(c.CreatedAt)
		d.accounts[a.ID] = c
	})
}

func (s *MemoryStore) InsertImage(ctx context.Context, img *retention.Image) error {
	return s.insert("images", img.ID,
		func(d *dataset) error { return requireAccount(d, img.UploadedBy) },
		func(d *dataset) { c := *img; d.images[img.ID] = &c })
}

func (s *MemoryStore) InsertJob(ctx context.Context, j *retention.Job) error {
	return s.insert("jobs", j.ID,
		func(d *dataset) error {
			if j.ImageID != "" {
				if _, ok := d.images[j.ImageID]; !ok {
					return fmt.Errorf("FOREIGN KEY constraint failed: image %s does not exist", j.ImageID)
				}
			}
			return requireAccount(d, j.SupervisingProfessorID)
		},
		func(d *dataset) { c := *j; d.jobs[j.ID] = &c })
}

func (s *MemoryStore) InsertEmailTemplate(ctx context.Context, t *retention.EmailTemplate) error {
	return s.insert("email_templates", t.ID,
		func(d *dataset) error { return requireAccount(d, t.CreatedBy) },
		func(d *dataset) { c := *t; d.templates[t.ID] = &c })
}

func (s *MemoryStore) InsertUserSetting(ctx context.Context, us *retention.UserSetting) error {
	return s.insert("user_settings", us.AccountID,
		func(d *dataset) error { return requireAccount(d, us.AccountID) },
		func(d *dataset) { d.userSettings = append(d.userSettings, *us) })
}

func (s *MemoryStore) InsertEmailSetting(ctx context.Context, es *retention.EmailSetting) error {
	return s.insert("email_settings", es.AccountID,
		func(d *dataset) error { return requireAccount(d, es.AccountID) },
		func(d *dataset) { d.emailSettings = append(d.emailSettings, *es) })
}

func (s *MemoryStore) InsertApplication(ctx context.Context, a *retention.Application) error {
	return s.insert("applications", a.ID,
		func(d *dataset) error {
			if _, ok := d.jobs[a.JobID]; !ok {
				return fmt.Errorf("FOREIGN KEY constraint failed: job %s does not exist", a.JobID)
			}
			return requireAccount(d, a.ApplicantID)
		},
		func(d *dataset) {
			c := *a
			c.LastModifiedAt = dbTime(c.LastModifiedAt)
			c.CreatedAt = dbTime(c.CreatedAt)
			d.applications[a.ID] = &c
		})
}

func (s *MemoryStore) InsertCustomFieldAnswer(ctx context.Context, a *retention.CustomFieldAnswer) error {
	return s.insert("custom_field_answers", a.ID,
		func(d *dataset) error { return requireApplication(d, a.ApplicationID) },
		func(d *dataset) { c := *a; d.answers[a.ID] = &c })
}

func (s *MemoryStore) InsertDocument(ctx context.Context, doc *retention.Document) error {
	return s.insert("documents", doc.ID, nil, func(d *dataset) { c := *doc; d.documents[doc.ID] = &c })
}

func (s *MemoryStore) InsertDictionaryEntry(ctx context.Context, e *retention.DocumentDictionaryEntry) error {
	return s.insert("document_dictionary", e.ID,
		func(d *dataset) error {
			if _, ok := d.documents[e.DocumentID]; !ok {
				return fmt.Errorf("FOREIGN KEY constraint failed: document %s does not exist", e.DocumentID)
			}
			return requireApplication(d, e.ApplicationID)
		},
		func(d *dataset) { c := *e; d.dictionary[e.ID] = &c })
}

func (s *MemoryStore) InsertReview(ctx context.Context, r *retention.ApplicationReview) error {
	return s.insert("application_reviews", r.ID,
		func(d *dataset) error {
			if err := requireApplication(d, r.ApplicationID); err != nil {
				return err
			}
			return requireAccount(d, r.ReviewedBy)
		},
		func(d *dataset) { c := *r; d.reviews[r.ID] = &c })
}

func (s *MemoryStore) InsertComment(ctx context.Context, cm *retention.InternalComment) error {
	return s.insert("internal_comments", cm.ID,
		func(d *dataset) error {
			if err := requireApplication(d, cm.ApplicationID); err != nil {
				return err
			}
			return requireAccount(d, cm.CreatedBy)
		},
		func(d *dataset) { c := *cm; d.comments[cm.ID] = &c })
}

func (s *MemoryStore) InsertRating(ctx context.Context, r *retention.Rating) error {
	return s.insert("ratings", r.ID,
		func(d *dataset) error {
			if err := requireApplication(d, r.ApplicationID); err != nil {
				return err
			}
			return requireAccount(d, r.FromID)
		},
		func(d *dataset) { c := *r; d.ratings[r.ID] = &c })
}

func (s *MemoryStore) InsertInterviewee(ctx context.Context, iv *retention.Interviewee) error {
	return s.insert("interviewees", iv.ID,
		func(d *dataset) error { return requireApplication(d, iv.ApplicationID) },
		func(d *dataset) { c := *iv; d.interviewees[iv.ID] = &c })
}

func (s *MemoryStore) InsertInterviewSlot(ctx context.Context, slot *retention.InterviewSlot) error {
	return s.insert("interview_slots", slot.ID,
		func(d *dataset) error {
			if _, ok := d.jobs[slot.JobID]; !ok {
				return fmt.Errorf("FOREIGN KEY constraint failed: job %s does not exist", slot.JobID)
			}
			if slot.IntervieweeID != "" {
				if _, ok := d.interviewees[slot.IntervieweeID]; !ok {
					return fmt.Errorf("FOREIGN KEY constraint failed: interviewee %s does not exist", slot.IntervieweeID)
				}
			}
			return nil
		},
		func(d *dataset) {
			c := *slot
			c.StartsAt = dbTime(c.StartsAt)
			d.slots[slot.ID] = &c
		})
}
