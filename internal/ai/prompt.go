package ai

import "fmt"

// BuildTranslationPrompt returns the system prompt for translating into targetLanguage.
// The transcript itself is sent unchanged as the user message.
func BuildTranslationPrompt(targetLanguage string) string {
	return fmt.Sprintf("You are a professional translator. Translate the following text to %s. "+
		"Maintain the original meaning, tone, and formatting. "+
		"Only return the translated text, no additional comments.", targetLanguage)
}
