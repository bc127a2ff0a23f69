// Package prompt builds the request payloads sent to the completion gateway.
//
// Builders are pure functions of their explicit inputs so the exact prompt
// text can be tested without any session or transport state involved.
package prompt

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyTopic            = errors.New("learning topic must not be empty")
	ErrMissingQuizParameters = errors.New("quiz generation requires a subject and a grade")
)

// LearningContext is the active topic+explanation pair used to ground chat and
// quiz prompts. At most one context is active per session.
type LearningContext struct {
	Topic   string `json:"topic"`
	Content string `json:"content"`
}

// Prompt is a system instruction plus a user message, ready for the gateway.
type Prompt struct {
	System string
	User   string
}

// QuizPrompt carries the generated quiz request plus its display title.
type QuizPrompt struct {
	Prompt
	Title string
}

const (
	learnSystem = "You are an AI assistant that provides educational content."
	quizSystem  = "You are an AI assistant that generates educational quizzes."
)

// BuildLearnPrompt produces the explanation request for a topic.
func BuildLearnPrompt(topic string) (Prompt, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Prompt{}, ErrEmptyTopic
	}
	return Prompt{
		System: learnSystem,
		User: fmt.Sprintf(
			"Explain the topic: %s. Provide a clear and concise explanation suitable for a student learning this for the first time. Focus on key concepts.",
			topic,
		),
	}, nil
}

// BuildChatPrompt produces the conversational request. When a learning context
// is active, the system instruction asks the model to prefer that material and
// flag out-of-scope answers; topic and content are embedded verbatim.
func BuildChatPrompt(userInput string, persona Persona, language string, ctx *LearningContext) Prompt {
	if language == "" {
		language = "English"
	}
	system := fmt.Sprintf("You are an AI assistant. Your persona is %s. Respond in %s.", persona, language)
	if ctx != nil {
		system += fmt.Sprintf(
			" The user is currently learning about '%s'. Please try to answer questions in the context of the following material: '%s'. If the question is unrelated, you can answer more generally but indicate if it's outside the scope of the current topic.",
			ctx.Topic, ctx.Content,
		)
	}
	return Prompt{System: system, User: userInput}
}

// BuildQuizPrompt produces a quiz request. A present learning context takes
// precedence over subject/grade/chapter; without one, subject and grade are
// required and an empty chapter falls back to "general topics".
func BuildQuizPrompt(ctx *LearningContext, subject, grade, chapter string) (QuizPrompt, error) {
	if ctx != nil {
		return QuizPrompt{
			Prompt: Prompt{
				System: quizSystem,
				User: fmt.Sprintf(
					"Generate a 3-question multiple-choice quiz based on the following text: '%s'. Each question should have 3-4 options labeled with letters (A, B, C, D). Clearly state the correct answer for each question in the format 'Correct Answer: <letter>'.",
					ctx.Content,
				),
			},
			Title: fmt.Sprintf("Quiz on: %s", ctx.Topic),
		}, nil
	}

	subject = strings.TrimSpace(subject)
	grade = strings.TrimSpace(grade)
	chapter = strings.TrimSpace(chapter)
	if subject == "" || grade == "" {
		return QuizPrompt{}, ErrMissingQuizParameters
	}

	topicForPrompt := "general topics"
	if chapter != "" {
		topicForPrompt = "Chapter: " + chapter
	}
	title := fmt.Sprintf("Quiz: %s - Class %s", subject, grade)
	if chapter != "" {
		title += " - " + chapter
	}

	return QuizPrompt{
		Prompt: Prompt{
			System: quizSystem,
			User: fmt.Sprintf(
				"Generate a 3-question multiple-choice quiz for a Class %s student on %s in %s. Each question should have 3-4 options labeled with letters (A, B, C, D). Clearly state the correct answer for each question in the format 'Correct Answer: <letter>'.",
				grade, topicForPrompt, subject,
			),
		},
		Title: title,
	}, nil
}
