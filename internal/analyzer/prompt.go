// prompt.go — промпты анализа контента.
package analyzer

import "fmt"

// systemPrompt — системный промпт: модель выступает аналитиком контента
// и обязана отвечать строго JSON-объектом заданной формы.
const systemPrompt = `You are a content analysis assistant. Analyze the provided content and respond with a single JSON object, no surrounding text, with exactly these fields:
{
  "title": "concise title for the content (max 120 characters)",
  "summary": "2-4 sentence summary of the key points",
  "keywords": ["5-10 relevant keywords or short phrases"],
  "sentiment": "one of: positive, neutral, negative",
  "markdownContent": "structured markdown breakdown: headings, key points, notable quotes"
}
Respond in the language of the source content.`

// userPrompt формирует пользовательский промпт в зависимости от типа входа.
func userPrompt(content, inputType string) string {
	switch inputType {
	case "url":
		return fmt.Sprintf("Analyze the content of the web page at this URL:\n\n%s", content)
	case "file":
		return fmt.Sprintf("Analyze the following document contents:\n\n%s", content)
	default:
		return fmt.Sprintf("Analyze the following text:\n\n%s", content)
	}
}
