package ai

import (
	"fmt"

	"scanbrief/pkg/domain"
)

var lengthInstructions = map[domain.SummaryLength]string{
	domain.LengthShort:    "Provide a brief 2-3 sentence summary of the key points.",
	domain.LengthMedium:   "Provide a comprehensive summary in 1-2 paragraphs covering main ideas.",
	domain.LengthDetailed: "Provide a detailed summary with all important points, organized in clear sections.",
}

const analyzeSystemPrompt = `You are an expert code analyzer. Analyze this code and provide:
1. Language Detection
2. Code Purpose/Functionality
3. Key Components
4. Potential Issues/Bugs
5. Best Practices Suggestions
6. Security Concerns (if any)
7. Performance Tips`

func buildPrompts(req CompletionRequest) (system, user string) {
	if req.Mode == domain.ModeAnalyzeCode {
		system = analyzeSystemPrompt
		if req.OutputLanguage != "" && req.OutputLanguage != "English" {
			system += fmt.Sprintf("\nIMPORTANT: Provide the analysis in %s.", req.OutputLanguage)
		}
		user = fmt.Sprintf("Analyze this code completely and thoroughly:\n\n%s", req.Text)
		return system, user
	}

	instruction, ok := lengthInstructions[req.SummaryLength]
	if !ok {
		instruction = lengthInstructions[domain.LengthMedium]
	}
	system = fmt.Sprintf(`You are an expert AI summarizer. Your task is to analyze and summarize text extracted from images using OCR. %s
Focus on clarity, accuracy, and key information.
IMPORTANT: Provide the summary in %s language.`, instruction, req.OutputLanguage)
	user = fmt.Sprintf("Please summarize the following text in %s:\n\n%s", req.OutputLanguage, req.Text)
	return system, user
}
