package constant

const (
	TutorRoleUser      = "user"
	TutorRoleAssistant = "assistant"
	TutorRoleSystem    = "system"

	TutorSystemPrompt = `You are a patient personal tutor. Answer in the learner's language, keep explanations concrete and check understanding with a short question at the end when it helps.`

	PlannerGeneratePlanPrompt = `Create a study plan for the following goal.

Goal: %s
Timeframe: %s
Previous goal (if any): %s

Return a numbered list of steps. Each step names the topic, the activity (learn, practice or review) and an estimated time.`

	LearnerAskQuestionPrompt = `Current topic: %s

Recent conversation:
%s

Learner question: "%s"

Answer the question clearly. If it relates to the current topic, connect the answer to it.`

	LearnerExplainTopicPrompt = `Explain the topic "%s" to a learner.

Recent conversation:
%s

Start from the core idea, then add detail. Use one short analogy.`

	LearnerProvideExamplePrompt = `Give a worked example for the topic "%s".

Recent conversation:
%s

Walk through the example step by step.`

	LearnerNextStepPrompt = `Current topic: %s

Recent conversation:
%s

Suggest the single most useful next step for this learner and explain why in two sentences.`

	AssessorGeneratePrompt = `Write %d %s questions at %s difficulty about: %s

Number each question. For multiple choice questions list options A-D. Do not include the answers.`

	AssessorGradePrompt = `Grade the learner's answers.

Questions:
%s

Answers:
%s

For each question say whether the answer is correct and give a one-line explanation. End with a line "SCORE: <correct>/<total>".`

	ReviewerSuggestionsPrompt = `Topics the learner has worked on: %s
Previous suggestions: %s

Suggest up to %d topics to review now, most urgent first, one per line, each with a short reason.`

	ReviewerMaterialPrompt = `Prepare concise review material for "%s": a summary of key points, one common mistake to avoid and two quick self-check questions.`
)
