package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/vidquiz/internal/quiz"
)

const analysisSystemPrompt = `You turn educational videos into interactive quizzes for young middle school students. You are careful, encouraging and precise about timing.`

func languageLabel(l quiz.Language) string {
	if l == "" {
		l = quiz.DefaultLanguage
	}
	s := string(l)
	return strings.ToUpper(s[:1]) + s[1:]
}

func buildAnalysisUserMessage(lang quiz.Language) string {
	label := languageLabel(lang)
	var b strings.Builder

	b.WriteString("Analyze the attached video and create interactive questions following these rules.\n")

	b.WriteString(`
1. Video content:
- Watch enough content (about 1-2 minutes) to cover a complete concept.
- Stop at a natural break point after the concept is explained.
- Ask only about content covered BEFORE the break point, never about upcoming content.
- Test understanding, not just memory.
- Write questions in the primary language of the video. Most videos are in English; switch only when the audio or on-screen text is mostly another language.
- Incorrect answers must be plausible and serious, close to the correct answer.

2. Timing:
- The first question comes after 1-2 minutes of content.
- The timestamp is where the video STOPS, in MM:SS.
- Each new question covers content since the previous question.

3. Question format:
- Simple, clear and age-appropriate. Greet the learner and get their attention before asking, in a fun way.
- Exactly four answers: the correct answer FIRST, then three plausible incorrect ones.
- Praise explains why the correct answer is right.
- Explanation is a brief child-friendly clarification for a wrong answer.
- Encouraging language, a little playful, suitable for children up to 12.

`)

	b.WriteString("4. Detailed explanations:\n")
	b.WriteString("- For each question give a thorough step-by-step explanation in English, including related concepts.\n")
	if lang.IsDefault() {
		b.WriteString("- Set \"translated\" to the same English explanation.\n")
	} else {
		b.WriteString(fmt.Sprintf("- Give the same detailed explanation in %s as \"translated\".\n", label))
		b.WriteString(fmt.Sprintf("- If translation to %s is not possible, set \"translated\" to %q.\n", label, quiz.TranslationUnavailable))
	}

	b.WriteString(`
5. Number of questions, by video length:
- at least 2 questions above 240 seconds
- at least 3 questions above 500 seconds
- at least 4 questions above 900 seconds
- at least 5 questions above 1500 seconds
- never more than 10 questions

The JSON is shown directly in the app, so avoid phrases that would not make sense there.`)

	return b.String()
}

const reportSystemPrompt = `You write warm, parent-friendly learning reports for young children based on their quiz answers.`

func buildReportUserMessage(history []quiz.AnswerRecord, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		name = "the learner"
	}
	raw, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("marshal history: %w", err)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Analyze this learning history for %s.\n", name))
	b.WriteString(fmt.Sprintf("Correct answers: %d of %d.\n", quiz.Score(history), len(history)))
	b.WriteString(fmt.Sprintf(`
1. Strengths (3-4 points):
- Concepts where %[1]s showed strong understanding.
- Patterns of correct answers, quick learning and good comprehension.

2. Areas for improvement (2-3 points):
- Concepts that need more practice and patterns in incorrect answers.
- Frame feedback positively and constructively.

3. Recommendations for parents (3-4 points):
- Specific activities to reinforce learning, both structured and play-based.
- Tips for supporting %[1]s's learning style.
`, name))
	b.WriteString("\nLearning history: ")
	b.Write(raw)
	return b.String(), nil
}
