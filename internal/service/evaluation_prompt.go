package service

import (
	"fmt"
	"strings"

	"github.com/lshigami/examflow/internal/model"
)

// criteriaFor lists the rubric an examiner applies to a part.
func criteriaFor(test *model.Test, part *model.Part) []string {
	if part.Type == model.PartCueCardSpeech || test.Modality == model.ModalitySpeaking {
		return []string{
			"Fluency and Coherence: speaks at length without noticeable effort, links ideas logically.",
			"Lexical Resource: range and precision of vocabulary, paraphrasing.",
			"Grammatical Range and Accuracy: variety of structures and how error-free they are.",
			"Pronunciation: intelligibility, stress, rhythm and intonation.",
		}
	}
	return []string{
		"Task Achievement: addresses every part of the task with relevant, developed ideas.",
		"Coherence and Cohesion: logical organisation, paragraphing and linking devices.",
		"Lexical Resource: range, accuracy and appropriacy of vocabulary.",
		"Grammatical Range and Accuracy: variety of structures and control of errors.",
	}
}

// buildTaskPrompt describes the task, rubric and the candidate's response. The output
// format is appended by each evaluator.
func buildTaskPrompt(req EvaluationRequest, hasImage bool) string {
	part := &req.Part
	var b strings.Builder

	switch {
	case part.Type == model.PartCueCardSpeech:
		b.WriteString("You are an experienced speaking examiner.\n")
		b.WriteString("The candidate was given the cue card below and answered aloud. ")
		if len(req.Audio) > 0 {
			b.WriteString("Their spoken answer is attached as audio.\n\n")
		} else {
			b.WriteString("Only a transcript of the answer is available.\n\n")
		}
	default:
		b.WriteString("You are an experienced writing examiner.\n")
		b.WriteString("Please evaluate the candidate's written response to the task below.\n\n")
	}
	if hasImage {
		b.WriteString("The candidate was shown the image provided above.\n\n")
	}

	b.WriteString("Task:\n---\n")
	b.WriteString(part.Prompt)
	b.WriteString("\n---\n")
	if part.Instructions != "" {
		b.WriteString("Instructions given to the candidate: ")
		b.WriteString(part.Instructions)
		b.WriteString("\n")
	}

	b.WriteString("\nEvaluate the response against these criteria:\n")
	for _, c := range criteriaFor(req.Test, part) {
		b.WriteString("- ")
		b.WriteString(c)
		b.WriteString("\n")
	}

	if text := req.Answer.Payload.ResponseText(); text != "" {
		if part.Type == model.PartCueCardSpeech {
			b.WriteString("\nTranscript of the candidate's answer:\n---\n")
		} else {
			b.WriteString("\nCandidate's Answer:\n---\n")
		}
		b.WriteString(text)
		b.WriteString("\n---\n")
	}
	return b.String()
}

func scoreRangeLine(part *model.Part) string {
	return fmt.Sprintf("a numerical score from 0.0 to %.1f (e.g. 5.5, 6.0)", partMaxScore(part))
}
