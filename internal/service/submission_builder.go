package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lshigami/examflow/internal/model"
	"github.com/lshigami/examflow/internal/recording"
	"github.com/lshigami/examflow/internal/repository"
	"github.com/lshigami/examflow/internal/session"
	"github.com/lshigami/examflow/internal/storage"
)

// SubmissionBuilder turns a finished session into an immutable submission. It is safe to
// call Build again for the same session: the session id is the idempotency key.
type SubmissionBuilder struct {
	submissionRepo repository.SubmissionRepository
	store          storage.ObjectStore
}

func NewSubmissionBuilder(submissionRepo repository.SubmissionRepository, store storage.ObjectStore) *SubmissionBuilder {
	return &SubmissionBuilder{submissionRepo: submissionRepo, store: store}
}

func (b *SubmissionBuilder) Build(ctx context.Context, draft session.Draft) (*model.Submission, error) {
	existing, err := b.submissionRepo.FindByIdempotencyKey(ctx, draft.SessionID)
	if err == nil {
		log.Info().Str("sessionID", draft.SessionID).Str("submissionID", existing.ID).Msg("Build: submission already exists")
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up submission: %w", err)
	}

	sub := &model.Submission{
		ID:             uuid.NewString(),
		IdempotencyKey: draft.SessionID,
		SessionID:      draft.SessionID,
		TestID:         draft.Test.ID,
		UserID:         draft.UserID,
		SubmittedAt:    draft.SubmittedAt,
		Reason:         string(draft.Reason),
		Status:         model.SubmissionPending,
	}

	var audioURL, audioType string
	if rec := draft.Recording; rec != nil && rec.Size() > 0 {
		// Upload failures leave the artifact with the recorder so the submit can be retried.
		key := storage.RecordingKey(draft.UserID, draft.SessionID, rec.ContentType)
		url, err := b.store.Put(ctx, key, bytes.NewReader(rec.Data), int64(rec.Size()), rec.ContentType)
		if err != nil {
			return nil, fmt.Errorf("failed to upload recording: %w", err)
		}
		audioURL, audioType = url, rec.ContentType
		sub.RecordingURL = &url
		sub.RecordingKey = key
		sub.RecordingChecksum = rec.Checksum
		log.Info().Str("sessionID", draft.SessionID).Int("bytes", rec.Size()).Str("key", key).Msg("Build: recording uploaded")
	}

	for _, entry := range draft.Entries() {
		payload := entry.Payload.Clone()
		payload.Kind = entry.Part.Type
		if entry.Part.Type == model.PartCueCardSpeech && draft.Recording != nil {
			payload.Audio = audioRef(draft.Recording, entry.Part.ID, audioURL, audioType)
		}
		sub.Answers = append(sub.Answers, model.SubmissionAnswer{
			PartID:       entry.Part.ID,
			Position:     entry.Position,
			PartType:     entry.Part.Type,
			Payload:      payload,
			Empty:        payload.IsEmpty(),
			Prompt:       entry.Part.Prompt,
			Instructions: entry.Part.Instructions,
		})
	}

	stored, created, err := b.submissionRepo.CreateIfAbsent(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("failed to persist submission: %w", err)
	}
	if created {
		log.Info().Str("sessionID", draft.SessionID).Str("submissionID", stored.ID).Int("answers", len(stored.Answers)).Msg("Build: submission created")
	} else {
		log.Info().Str("sessionID", draft.SessionID).Str("submissionID", stored.ID).Msg("Build: concurrent build won, returning existing submission")
	}
	return stored, nil
}

// audioRef locates a part's answer inside the recording. Parts that were never reached
// get no reference.
func audioRef(rec *recording.Artifact, partID uint, url, contentType string) *model.AudioRef {
	for i, seg := range rec.Segments {
		if seg.PartID != partID {
			continue
		}
		end := rec.Size()
		if i+1 < len(rec.Segments) {
			end = rec.Segments[i+1].Offset
		}
		if end <= seg.Offset {
			return nil
		}
		return &model.AudioRef{
			URL:         url,
			ContentType: contentType,
			Offset:      seg.Offset,
			Length:      end - seg.Offset,
			StartMillis: seg.At.Milliseconds(),
		}
	}
	return nil
}
