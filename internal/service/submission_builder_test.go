package service

import (
	"context"
	"sync"
	"testing"

	"github.com/lshigami/examflow/internal/model"
	"github.com/lshigami/examflow/internal/recording"
	"github.com/lshigami/examflow/internal/storage"
)

func TestBuildConcurrentSubmitsCreateOneSubmission(t *testing.T) {
	f := newFixture()
	test := f.seed(t, writingTest("Writing A", 2, model.CombineAverage, model.FailedExclude))
	builder := NewSubmissionBuilder(f.submissions, storage.NewMemoryStore())
	draft := draftFor("session-1", test)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub, err := builder.Build(context.Background(), draft)
			if err != nil {
				t.Errorf("Build %d: %v", i, err)
				return
			}
			ids[i] = sub.ID
		}(i)
	}
	wg.Wait()

	for i, id := range ids {
		if id != ids[0] {
			t.Errorf("Build %d returned submission %s, want %s", i, id, ids[0])
		}
	}
	subs, err := f.submissions.FindAllByTestAndUser(context.Background(), test.ID, "user-1")
	if err != nil {
		t.Fatalf("FindAllByTestAndUser: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected exactly one submission, got %d", len(subs))
	}
}

func TestBuildFillsUnansweredParts(t *testing.T) {
	f := newFixture()
	test := f.seed(t, writingTest("Writing B", 3, model.CombineSum, model.FailedExclude))
	builder := NewSubmissionBuilder(f.submissions, storage.NewMemoryStore())

	draft := draftFor("session-2", test)
	delete(draft.Answers, test.Parts[1].ID)
	draft.Answers[test.Parts[2].ID] = model.AnswerPayload{Kind: model.PartFreeText, Text: "   "}

	sub, err := builder.Build(context.Background(), draft)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(sub.Answers) != 3 {
		t.Fatalf("expected an answer for every part, got %d", len(sub.Answers))
	}
	wantEmpty := []bool{false, true, true}
	for i, a := range sub.Answers {
		if a.Position != i || a.PartID != test.Parts[i].ID {
			t.Errorf("answer %d out of order: %+v", i, a)
		}
		if a.Empty != wantEmpty[i] {
			t.Errorf("answer %d: expected empty=%v, got %v", i, wantEmpty[i], a.Empty)
		}
		if a.Payload.Kind != model.PartFreeText {
			t.Errorf("answer %d: expected payload kind free_text, got %q", i, a.Payload.Kind)
		}
	}
	if sub.Status != model.SubmissionPending || sub.Reason != "manual" {
		t.Errorf("unexpected submission state: status=%s reason=%s", sub.Status, sub.Reason)
	}
}

func TestBuildRecordingUploadFailureIsRetryable(t *testing.T) {
	f := newFixture()
	test := f.seed(t, model.Test{
		Title:      "Speaking A",
		Modality:   model.ModalitySpeaking,
		TimingMode: model.TimingPerPart,
		Parts: []model.Part{
			{Title: "P1", Prompt: "Describe your home.", Type: model.PartCueCardSpeech, OrderInTest: 1, DurationSeconds: 60, MaxScore: 9},
			{Title: "P2", Prompt: "Describe a friend.", Type: model.PartCueCardSpeech, OrderInTest: 2, DurationSeconds: 60, MaxScore: 9},
			{Title: "P3", Prompt: "Describe a trip.", Type: model.PartCueCardSpeech, OrderInTest: 3, DurationSeconds: 60, MaxScore: 9},
		},
	})
	objects := storage.NewMemoryStore()
	objects.FailNext(1)
	builder := NewSubmissionBuilder(f.submissions, objects)

	draft := draftFor("session-3", test)
	draft.Answers = nil
	draft.Recording = &recording.Artifact{
		SessionID:   "session-3",
		ContentType: "audio/webm",
		Data:        []byte("aaaabbbbbb"),
		Segments: []recording.Segment{
			{PartID: test.Parts[0].ID, Offset: 0},
			{PartID: test.Parts[1].ID, Offset: 4},
		},
		Checksum: "abc",
	}

	if _, err := builder.Build(context.Background(), draft); err == nil {
		t.Fatal("expected the first build to fail on upload")
	}
	if _, err := f.submissions.FindByIdempotencyKey(context.Background(), "session-3"); err == nil {
		t.Fatal("no submission should exist after a failed upload")
	}

	sub, err := builder.Build(context.Background(), draft)
	if err != nil {
		t.Fatalf("retry Build: %v", err)
	}
	if objects.Len() != 1 {
		t.Errorf("expected one stored recording, got %d", objects.Len())
	}
	if sub.RecordingURL == nil || sub.RecordingKey != "recordings/user-1/session-3.webm" {
		t.Errorf("unexpected recording reference: url=%v key=%q", sub.RecordingURL, sub.RecordingKey)
	}

	testCases := []struct {
		name      string
		index     int
		wantAudio bool
		offset    int
		length    int
	}{
		{"first part", 0, true, 0, 4},
		{"second part runs to the end", 1, true, 4, 6},
		{"part never reached", 2, false, 0, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := sub.Answers[tc.index]
			if !tc.wantAudio {
				if a.Payload.Audio != nil || !a.Empty {
					t.Errorf("expected an empty answer without audio, got %+v", a)
				}
				return
			}
			if a.Payload.Audio == nil {
				t.Fatal("expected an audio reference")
			}
			if a.Payload.Audio.Offset != tc.offset || a.Payload.Audio.Length != tc.length {
				t.Errorf("expected audio [%d,+%d), got [%d,+%d)", tc.offset, tc.length, a.Payload.Audio.Offset, a.Payload.Audio.Length)
			}
			if a.Empty {
				t.Error("answer with audio should not be empty")
			}
		})
	}
}
